package database

import (
	"context"

	"github.com/PancyStudios/ZenoxGo/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
)

const guildsCollection = "guilds"

// GuildStore gives access to guild configurations through a cached DataManager
type GuildStore struct {
	dm *DataManager[models.GuildConfig]
}

// NewGuildStore creates the store over the default database
func NewGuildStore(db *Database) *GuildStore {
	return &GuildStore{
		dm: NewDataManager[models.GuildConfig](guildsCollection, db, DataManagerOptions{MaxCacheSize: 5000}),
	}
}

func guildQuery(id string) bson.M {
	return bson.M{"id": id}
}

// Get returns a guild configuration, nil when the guild is unknown
func (s *GuildStore) Get(ctx context.Context, id string) (*models.GuildConfig, error) {
	return s.dm.Get(ctx, guildQuery(id))
}

// GetOrCreate returns the guild configuration, storing defaults first if needed
func (s *GuildStore) GetOrCreate(ctx context.Context, id string) (*models.GuildConfig, error) {
	g, err := s.dm.Get(ctx, guildQuery(id))
	if err != nil || g != nil {
		return g, err
	}
	return s.dm.Set(ctx, guildQuery(id), models.NewGuildConfig(id))
}

// All returns every stored guild configuration
func (s *GuildStore) All(ctx context.Context) ([]*models.GuildConfig, error) {
	guilds, err := s.dm.GetAll(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	for _, g := range guilds {
		s.dm.cache.Add(s.dm.cacheKey(guildQuery(g.ID)), g)
	}
	return guilds, nil
}

// ClearChannel unsubscribes a guild from a game's code notifications
func (s *GuildStore) ClearChannel(ctx context.Context, id string, game models.Game) error {
	return s.set(ctx, id, bson.M{models.CodesField(game, models.CodesFieldChannel): nil})
}

// ClearRole removes the mention role of a game's code notifications
func (s *GuildStore) ClearRole(ctx context.Context, id string, game models.Game) error {
	return s.set(ctx, id, bson.M{models.CodesField(game, models.CodesFieldRolePing): nil})
}

// SetPendingDeletion flags or restores a guild the bot may have left
func (s *GuildStore) SetPendingDeletion(ctx context.Context, id string, pending bool) error {
	return s.set(ctx, id, bson.M{"pending_deletion": pending})
}

// SetMemberCount records the member count seen on the gateway
func (s *GuildStore) SetMemberCount(ctx context.Context, id string, count int) error {
	return s.set(ctx, id, bson.M{"member_count": count})
}

// Delete removes a guild configuration
func (s *GuildStore) Delete(ctx context.Context, id string) error {
	return s.dm.Delete(ctx, guildQuery(id))
}

func (s *GuildStore) set(ctx context.Context, id string, fields bson.M) error {
	_, err := s.dm.Set(ctx, guildQuery(id), fields)
	return err
}
