// Package discord provides the command handler for loading and registering commands.
package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/ZenoxGo/pkg/logger"
)

// CommandHandler manages command loading and registration
type CommandHandler struct {
	client           *ExtendedClient
	slashCommands    []*discordgo.ApplicationCommand
	slashCommandsDev []*discordgo.ApplicationCommand
}

// NewCommandHandler creates a new CommandHandler
func NewCommandHandler(client *ExtendedClient) *CommandHandler {
	return &CommandHandler{
		client:           client,
		slashCommands:    make([]*discordgo.ApplicationCommand, 0),
		slashCommandsDev: make([]*discordgo.ApplicationCommand, 0),
	}
}

// RegisterCommand adds a command to the handler
func (ch *CommandHandler) RegisterCommand(cmd *Command) {
	ch.client.Commands.Set(cmd.Name, cmd)

	appCmd := cmd.ToApplicationCommand()

	if cmd.IsDev {
		ch.slashCommandsDev = append(ch.slashCommandsDev, appCmd)
	} else {
		ch.slashCommands = append(ch.slashCommands, appCmd)
	}

	logger.Debug("Command registered: "+cmd.Name, "CommandHandler")
}

func subcommandOption(cmd *Command) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        cmd.Name,
		Description: cmd.Description,
		Options:     cmd.Options,
	}
}

// BuildCommandGroup creates a command group with subcommands
func (ch *CommandHandler) BuildCommandGroup(name, description string, subcommands ...*Command) *discordgo.ApplicationCommand {
	options := make([]*discordgo.ApplicationCommandOption, 0, len(subcommands))

	for _, cmd := range subcommands {
		ch.client.Commands.Set(name+"."+cmd.Name, cmd)
		options = append(options, subcommandOption(cmd))
	}

	return &discordgo.ApplicationCommand{
		Name:        name,
		Description: description,
		Options:     options,
	}
}

// BuildSubcommandGroup creates a subcommand group
func (ch *CommandHandler) BuildSubcommandGroup(groupName, name, description string, subcommands ...*Command) *discordgo.ApplicationCommandOption {
	options := make([]*discordgo.ApplicationCommandOption, 0, len(subcommands))

	for _, cmd := range subcommands {
		ch.client.Commands.Set(groupName+"."+name+"."+cmd.Name, cmd)
		options = append(options, subcommandOption(cmd))
	}

	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

// AddGlobalCommand adds a command to the global command list
func (ch *CommandHandler) AddGlobalCommand(cmd *discordgo.ApplicationCommand) {
	ch.slashCommands = append(ch.slashCommands, cmd)
}

// AddDevCommand adds a command to the dev command list
func (ch *CommandHandler) AddDevCommand(cmd *discordgo.ApplicationCommand) {
	ch.slashCommandsDev = append(ch.slashCommandsDev, cmd)
}

// GlobalCommands returns the commands registered globally
func (ch *CommandHandler) GlobalCommands() []*discordgo.ApplicationCommand {
	return ch.slashCommands
}

// DevCommands returns the commands registered in the dev guild
func (ch *CommandHandler) DevCommands() []*discordgo.ApplicationCommand {
	return ch.slashCommandsDev
}

func (ch *CommandHandler) appID() string {
	if ch.client.Session.State != nil && ch.client.Session.State.User != nil {
		return ch.client.Session.State.User.ID
	}
	return ""
}

// RegisterCommands registers the slash commands with Discord. Dev commands go
// to devGuildID only and are skipped without one.
func (ch *CommandHandler) RegisterCommands(devGuildID string) {
	logger.Info("Registering global commands...", "CommandHandler")

	for _, cmd := range ch.slashCommands {
		if _, err := ch.client.Session.ApplicationCommandCreate(ch.appID(), "", cmd); err != nil {
			logger.Error("Error registering command "+cmd.Name+": "+err.Error(), "CommandHandler")
		}
	}

	logger.Success(fmt.Sprintf("%d global commands registered.", len(ch.slashCommands)), "CommandHandler")

	if devGuildID == "" || len(ch.slashCommandsDev) == 0 {
		return
	}

	logger.Info("Registering dev commands in guild "+devGuildID+"...", "CommandHandler")

	for _, cmd := range ch.slashCommandsDev {
		if _, err := ch.client.Session.ApplicationCommandCreate(ch.appID(), devGuildID, cmd); err != nil {
			logger.Error("Error registering dev command "+cmd.Name+": "+err.Error(), "CommandHandler")
		}
	}

	logger.Success(fmt.Sprintf("%d dev commands registered.", len(ch.slashCommandsDev)), "CommandHandler")
}

// SyncCommands overwrites the registered commands with the local set, removing
// commands that no longer exist
func (ch *CommandHandler) SyncCommands(devGuildID string) error {
	global, err := ch.client.Session.ApplicationCommandBulkOverwrite(ch.appID(), "", ch.slashCommands)
	if err != nil {
		return fmt.Errorf("sync global commands: %w", err)
	}
	logger.Success(fmt.Sprintf("%d global commands synced.", len(global)), "CommandHandler")

	if devGuildID == "" {
		return nil
	}
	dev, err := ch.client.Session.ApplicationCommandBulkOverwrite(ch.appID(), devGuildID, ch.slashCommandsDev)
	if err != nil {
		return fmt.Errorf("sync dev commands: %w", err)
	}
	logger.Success(fmt.Sprintf("%d dev commands synced.", len(dev)), "CommandHandler")
	return nil
}

// ListGlobalCommands returns the commands registered globally on Discord
func (ch *CommandHandler) ListGlobalCommands() ([]*discordgo.ApplicationCommand, error) {
	return ch.client.Session.ApplicationCommands(ch.appID(), "")
}

// ListGuildCommands returns the commands registered on Discord for a guild
func (ch *CommandHandler) ListGuildCommands(guildID string) ([]*discordgo.ApplicationCommand, error) {
	return ch.client.Session.ApplicationCommands(ch.appID(), guildID)
}

// UnregisterCommands removes all global commands from Discord
func (ch *CommandHandler) UnregisterCommands() error {
	return ch.unregister("")
}

// UnregisterGuildCommands removes all of a guild's commands from Discord
func (ch *CommandHandler) UnregisterGuildCommands(guildID string) error {
	return ch.unregister(guildID)
}

func (ch *CommandHandler) unregister(guildID string) error {
	commands, err := ch.client.Session.ApplicationCommands(ch.appID(), guildID)
	if err != nil {
		return err
	}

	for _, cmd := range commands {
		if err := ch.client.Session.ApplicationCommandDelete(ch.appID(), guildID, cmd.ID); err != nil {
			logger.Error("Error deleting command "+cmd.Name+": "+err.Error(), "CommandHandler")
		}
	}

	scope := "global"
	if guildID != "" {
		scope = "guild " + guildID
	}
	logger.Success(fmt.Sprintf("%d %s commands deleted.", len(commands), scope), "CommandHandler")
	return nil
}
