// Package database provides the DataManager for cached database operations.
package database

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/PancyStudios/ZenoxGo/pkg/logger"
	lru "github.com/hashicorp/golang-lru"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DataManagerOptions contains configuration for a DataManager
type DataManagerOptions struct {
	DBName       string
	MaxCacheSize int
}

// DefaultDataManagerOptions returns default options for DataManager
func DefaultDataManagerOptions() DataManagerOptions {
	return DataManagerOptions{
		MaxCacheSize: 1000,
	}
}

// DataManager provides LRU-cached access to a MongoDB collection
type DataManager[T any] struct {
	name       string
	dbInstance *Database
	options    DataManagerOptions
	cache      *lru.Cache
}

// NewDataManager creates a new DataManager for a collection
func NewDataManager[T any](collectionName string, db *Database, opts ...DataManagerOptions) *DataManager[T] {
	dmOptions := DefaultDataManagerOptions()
	if len(opts) > 0 {
		dmOptions = opts[0]
	}
	if dmOptions.DBName == "" && db != nil {
		dmOptions.DBName = db.dbName
	}
	if dmOptions.MaxCacheSize <= 0 {
		dmOptions.MaxCacheSize = 1
	}

	cache, _ := lru.New(dmOptions.MaxCacheSize)

	return &DataManager[T]{
		name:       collectionName,
		dbInstance: db,
		options:    dmOptions,
		cache:      cache,
	}
}

func (dm *DataManager[T]) collection() (*mongo.Collection, error) {
	if dm.dbInstance == nil || !dm.dbInstance.Connected() {
		return nil, ErrNotConnected
	}
	col := dm.dbInstance.CollectionIn(dm.options.DBName, dm.name)
	if col == nil {
		return nil, ErrNotConnected
	}
	return col, nil
}

// cacheKey creates a deterministic key from a query.
// Keys are sorted so map iteration order does not matter.
func (dm *DataManager[T]) cacheKey(query bson.M) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, query[k]))
	}

	return fmt.Sprintf("%s.%s:{%s}", dm.options.DBName, dm.name, strings.Join(parts, ","))
}

// Get retrieves a document from cache or database. A missing document is (nil, nil).
func (dm *DataManager[T]) Get(ctx context.Context, query bson.M) (*T, error) {
	key := dm.cacheKey(query)
	if v, ok := dm.cache.Get(key); ok {
		return v.(*T), nil
	}

	col, err := dm.collection()
	if err != nil {
		return nil, err
	}

	var result T
	if err := col.FindOne(ctx, query).Decode(&result); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		logger.Warn(fmt.Sprintf("Failed to read %s from the database: %v", dm.name, err), "DataManager")
		return nil, err
	}

	dm.cache.Add(key, &result)
	return &result, nil
}

// GetAll retrieves all documents matching a query from the database, bypassing the cache
func (dm *DataManager[T]) GetAll(ctx context.Context, query bson.M) ([]*T, error) {
	col, err := dm.collection()
	if err != nil {
		return nil, err
	}

	cursor, err := col.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var results []*T
	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			logger.Warn(fmt.Sprintf("Invalid document in '%s': %v", dm.name, err), "DataManager")
			continue
		}
		results = append(results, &doc)
	}

	return results, cursor.Err()
}

// Set applies $set with upsert and refreshes the cached document. While the
// database is offline the write is queued and (nil, nil) is returned.
func (dm *DataManager[T]) Set(ctx context.Context, query bson.M, data interface{}) (*T, error) {
	key := dm.cacheKey(query)

	col, err := dm.collection()
	if err != nil {
		logger.Warn(fmt.Sprintf("DB offline. Queueing write for '%s'", dm.name), "DataManager")
		dm.cache.Remove(key)
		dm.queue(query, "set", data)
		return nil, nil
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var result T
	if err := col.FindOneAndUpdate(ctx, query, bson.M{"$set": data}, opts).Decode(&result); err != nil {
		logger.Error(fmt.Sprintf("Error on 'set' for '%s'. Queueing it.", dm.name), "DataManager")
		dm.cache.Remove(key)
		dm.queue(query, "set", data)
		return nil, err
	}

	dm.cache.Add(key, &result)
	return &result, nil
}

// Delete removes a document from the database and cache
func (dm *DataManager[T]) Delete(ctx context.Context, query bson.M) error {
	dm.cache.Remove(dm.cacheKey(query))

	col, err := dm.collection()
	if err != nil {
		logger.Warn(fmt.Sprintf("DB offline. Queueing delete for '%s'", dm.name), "DataManager")
		dm.queue(query, "delete", nil)
		return nil
	}

	if _, err := col.DeleteOne(ctx, query); err != nil {
		logger.Error(fmt.Sprintf("Error on 'delete' for '%s'. Queueing it.", dm.name), "DataManager")
		dm.queue(query, "delete", nil)
		return err
	}
	return nil
}

func (dm *DataManager[T]) queue(query bson.M, op string, data interface{}) {
	if dm.dbInstance == nil {
		return
	}
	dm.dbInstance.AddToWriteQueue(QueuedOperation{
		DBName:         dm.options.DBName,
		CollectionName: dm.name,
		Query:          query,
		Operation:      op,
		Data:           data,
	})
}

// ClearCache clears the entire cache
func (dm *DataManager[T]) ClearCache() {
	dm.cache.Purge()
}

// CacheSize returns the current cache size
func (dm *DataManager[T]) CacheSize() int {
	return dm.cache.Len()
}
