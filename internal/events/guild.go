// Package events provides event handlers for guild (server) events
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/ZenoxGo/internal/operator"
	"github.com/PancyStudios/ZenoxGo/pkg/discord"
	zerrors "github.com/PancyStudios/ZenoxGo/pkg/errors"
	"github.com/PancyStudios/ZenoxGo/pkg/logger"
)

const (
	sourceGuild = "Guild"

	// GuildCreate is also sent for every guild on connect; only recent joins are new
	joinWindow = 10 * time.Second

	guildTimeout = 30 * time.Second
)

type guildEvents struct {
	Deps
	now func() time.Time
}

// RegisterGuildEvents registers all guild-related event handlers
func RegisterGuildEvents(client *discord.ExtendedClient, d Deps) {
	e := &guildEvents{Deps: d, now: time.Now}
	client.EventHandler.OnGuildCreate(e.onGuildCreate)
	client.EventHandler.OnGuildDelete(e.onGuildDelete)
}

// GuildInfo is what the handlers need of a guild
type GuildInfo struct {
	ID          string
	Name        string
	MemberCount int
	JoinedAt    time.Time
}

func (e *guildEvents) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	defer zerrors.RecoverMiddleware()()

	ctx, cancel := context.WithTimeout(context.Background(), guildTimeout)
	defer cancel()
	e.joined(ctx, GuildInfo{ID: g.ID, Name: g.Name, MemberCount: g.MemberCount, JoinedAt: g.JoinedAt})
}

func (e *guildEvents) onGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	defer zerrors.RecoverMiddleware()()

	// an outage, not a removal
	if g.Unavailable {
		return
	}
	info := GuildInfo{ID: g.ID}
	if g.BeforeDelete != nil {
		info.Name = g.BeforeDelete.Name
		info.MemberCount = g.BeforeDelete.MemberCount
	}

	ctx, cancel := context.WithTimeout(context.Background(), guildTimeout)
	defer cancel()
	e.left(ctx, info)
}

// joined creates the config of a newly joined guild and reports it. It
// reports whether the guild counted as a new join.
func (e *guildEvents) joined(ctx context.Context, g GuildInfo) bool {
	if g.JoinedAt.Before(e.now().Add(-joinWindow)) {
		return false
	}

	logger.Info(fmt.Sprintf("Added to guild: %s (ID: %s)", g.Name, g.ID), sourceGuild)

	cfg, err := e.Guilds.GetOrCreate(ctx, g.ID)
	if err != nil {
		zerrors.Capture(fmt.Errorf("create config of guild %s: %w", g.ID, err), sourceGuild)
	} else if cfg != nil && cfg.PendingDeletion {
		if err := e.Guilds.SetPendingDeletion(ctx, g.ID, false); err != nil {
			zerrors.Capture(fmt.Errorf("restore guild %s: %w", g.ID, err), sourceGuild)
		}
	}

	e.Reporter.Report(operator.Report{
		Source:      sourceGuild,
		Title:       "Guild Joined",
		Description: fmt.Sprintf("**%s**\n`%s`", g.Name, g.ID),
		Level:       logger.LevelSuccess,
		Fields:      []operator.Field{{Name: "Members", Value: fmt.Sprintf("%d", g.MemberCount)}},
	})
	return true
}

// left flags the config of a guild the bot was removed from
func (e *guildEvents) left(ctx context.Context, g GuildInfo) {
	logger.Info(fmt.Sprintf("Removed from guild ID: %s", g.ID), sourceGuild)

	if err := e.Guilds.SetPendingDeletion(ctx, g.ID, true); err != nil {
		zerrors.Capture(fmt.Errorf("flag guild %s: %w", g.ID, err), sourceGuild)
	}

	name := g.Name
	if name == "" {
		name = "Unknown"
	}
	e.Reporter.Report(operator.Report{
		Source:      sourceGuild,
		Title:       "Guild Left",
		Description: fmt.Sprintf("**%s**\n`%s`", name, g.ID),
		Level:       logger.LevelWarn,
		Fields:      []operator.Field{{Name: "Members", Value: fmt.Sprintf("%d", g.MemberCount)}},
	})
}
