// Package utils holds the public /utils commands.
package utils

import (
	"github.com/PancyStudios/ZenoxGo/pkg/discord"
)

// DatabaseStatus reports the connection state of the database
type DatabaseStatus interface {
	GetStatus() (string, bool)
}

// PipelineState reports whether the code pipeline is running
type PipelineState interface {
	StateName() string
}

// Deps are what the status commands report on. Nil members show as offline.
type Deps struct {
	DB       DatabaseStatus
	Pipeline PipelineState
}

// RegisterUtilsCommands registers all utility commands as /utils subcommands
func RegisterUtilsCommands(client *discord.ExtendedClient, d Deps) {
	group := client.CommandHandler.BuildCommandGroup(
		"utils",
		"Utility commands",
		createPingCommand(),
		createStatusCommand(d),
		createHelpCommand(),
		createStatsCommand(),
	)

	client.CommandHandler.AddGlobalCommand(group)
}
