// Package events provides event handlers for the bot
package events

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/ZenoxGo/pkg/discord"
	"github.com/PancyStudios/ZenoxGo/pkg/logger"
)

const presence = "for new redemption codes"

// RegisterReadyEvent registers the ready event handler
func RegisterReadyEvent(client *discord.ExtendedClient) {
	client.EventHandler.OnReady(onReady)
}

// onReady is called when the bot successfully connects to Discord
func onReady(s *discordgo.Session, r *discordgo.Ready) {
	logger.Info(fmt.Sprintf("Connected to %d guilds", len(r.Guilds)), "Ready")

	if err := s.UpdateWatchStatus(0, presence); err != nil {
		logger.Error(fmt.Sprintf("Error setting status: %v", err), "Ready")
		return
	}

	logger.Debug("Bot status set", "Ready")
}
