// Package tasks holds the housekeeping jobs that are not part of the code
// pipeline: database cleanup, client statistics and the top.gg guild count.
package tasks

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

// GuildInfo is what the gateway knows about a joined guild
type GuildInfo struct {
	ID          string
	MemberCount int
}

// Gateway lists the guilds the bot is currently in
type Gateway interface {
	Guilds() []GuildInfo
}

// GuildRepository is the guild configuration storage the tasks maintain
type GuildRepository interface {
	All(ctx context.Context) ([]*models.GuildConfig, error)
	GetOrCreate(ctx context.Context, id string) (*models.GuildConfig, error)
	SetPendingDeletion(ctx context.Context, id string, pending bool) error
	SetMemberCount(ctx context.Context, id string, count int) error
	Delete(ctx context.Context, id string) error
}

// EventSink publishes task events
type EventSink interface {
	PublishEvent(event string, payload interface{}) error
}

// StateGateway reads the guilds from the session state cache
type StateGateway struct {
	s *discordgo.Session
}

func NewStateGateway(s *discordgo.Session) *StateGateway {
	return &StateGateway{s: s}
}

func (g *StateGateway) Guilds() []GuildInfo {
	if g.s == nil || g.s.State == nil {
		return nil
	}
	g.s.State.RLock()
	defer g.s.State.RUnlock()

	out := make([]GuildInfo, 0, len(g.s.State.Guilds))
	for _, guild := range g.s.State.Guilds {
		out = append(out, GuildInfo{ID: guild.ID, MemberCount: guild.MemberCount})
	}
	return out
}
