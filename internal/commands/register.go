// Package commands provides a registry for organizing bot commands.
// Commands are organized in subdirectories by category (utils, dev).
package commands

import (
	"github.com/PancyStudios/ZenoxGo/internal/commands/dev"
	"github.com/PancyStudios/ZenoxGo/internal/commands/utils"
	"github.com/PancyStudios/ZenoxGo/pkg/discord"
)

// Deps are the collaborators of every command category
type Deps struct {
	Utils utils.Deps
	Dev   dev.Deps
}

// RegisterAll registers all commands with the Discord client
func RegisterAll(client *discord.ExtendedClient, d Deps) {
	// /utils ping, status, help, stats
	utils.RegisterUtilsCommands(client, d.Utils)

	// /dev pipeline, queue, wiki, stream, program (dev guild only)
	dev.Register(client, d.Dev)
}
