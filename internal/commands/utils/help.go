package utils

import (
	"strings"

	"github.com/PancyStudios/ZenoxGo/pkg/discord"
	"github.com/PancyStudios/ZenoxGo/pkg/errors"
	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

// createHelpCommand creates the /utils help subcommand
func createHelpCommand() *discord.Command {
	return discord.NewCommand(
		"help",
		"Shows help information",
		"utils",
		helpHandler,
	)
}

func helpText() string {
	var b strings.Builder
	b.WriteString("📖 **Zenox Go**\n\n")
	b.WriteString("Zenox posts new redemption codes as soon as they are confirmed to work, for:\n")
	for _, g := range models.Games {
		b.WriteString("• " + string(g) + "\n")
	}
	b.WriteString("\n**Commands:**\n" +
		"• `/utils ping` - Checks the latency\n" +
		"• `/utils status` - Bot status\n" +
		"• `/utils stats` - Bot statistics\n" +
		"• `/utils help` - This message")
	return b.String()
}

func helpHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()
		ctx.ReplyEphemeral(helpText())
	}()
	return nil
}
