package utils

import (
	"fmt"

	"github.com/PancyStudios/ZenoxGo/pkg/discord"
	"github.com/PancyStudios/ZenoxGo/pkg/errors"
)

// createStatusCommand creates the /utils status subcommand
func createStatusCommand(d Deps) *discord.Command {
	return discord.NewCommand(
		"status",
		"Shows the bot status",
		"utils",
		func(ctx *discord.CommandContext) error {
			go func() {
				defer errors.RecoverMiddleware()()
				ctx.Reply(statusText(d, ctx.Client.GuildCount()))
			}()
			return nil
		},
	)
}

func statusText(d Deps, guilds int) string {
	dbStatus := "Disconnected"
	if d.DB != nil {
		dbStatus, _ = d.DB.GetStatus()
	}
	pipelineState := "offline"
	if d.Pipeline != nil {
		pipelineState = d.Pipeline.StateName()
	}
	return fmt.Sprintf(
		"📊 **Bot Status**\n"+
			"• Bot: 🟢 Online\n"+
			"• Database: %s\n"+
			"• Code pipeline: %s\n"+
			"• Guilds: %d",
		dbStatus,
		pipelineState,
		guilds,
	)
}
