package database

import (
	"context"
	"fmt"

	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

// AnalyticsStore appends publish records to the analytics database
type AnalyticsStore struct {
	db     *Database
	dbName string
}

func NewAnalyticsStore(db *Database, dbName string) *AnalyticsStore {
	return &AnalyticsStore{db: db, dbName: dbName}
}

// InsertPublishRecord writes a record into the given analytics collection
func (s *AnalyticsStore) InsertPublishRecord(ctx context.Context, collection string, rec models.PublishRecord) error {
	if s.db == nil || !s.db.Connected() {
		return ErrNotConnected
	}
	col := s.db.CollectionIn(s.dbName, collection)
	if col == nil {
		return ErrNotConnected
	}
	if _, err := col.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert %s record: %w", rec.Type, err)
	}
	return nil
}
