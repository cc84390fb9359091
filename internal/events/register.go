// Package events provides a registry for organizing bot events.
// Events are organized by category (ready, guild, shard).
package events

import (
	"context"

	"github.com/PancyStudios/ZenoxGo/internal/operator"
	"github.com/PancyStudios/ZenoxGo/pkg/discord"
	"github.com/PancyStudios/ZenoxGo/pkg/logger"
	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

// GuildRepository keeps guild configs in step with the guilds the bot is in
type GuildRepository interface {
	GetOrCreate(ctx context.Context, id string) (*models.GuildConfig, error)
	SetPendingDeletion(ctx context.Context, id string, pending bool) error
}

// Deps are the collaborators of the event handlers
type Deps struct {
	Guilds   GuildRepository
	Reporter operator.Reporter
}

// RegisterAll registers all events with the Discord client
func RegisterAll(client *discord.ExtendedClient, d Deps) {
	logger.System("Registering bot events...", "Events")

	// Ready event (bot startup)
	RegisterReadyEvent(client)

	// Guild events (server join/leave)
	RegisterGuildEvents(client, d)

	// Shard events (disconnect/resume)
	RegisterShardEvents(client)

	logger.Success("All events registered", "Events")
}
