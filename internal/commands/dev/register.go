// Package dev holds the /dev commands operators use to inspect and steer
// the code pipeline. They are registered in the dev guild only.
package dev

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/ZenoxGo/internal/pipeline"
	"github.com/PancyStudios/ZenoxGo/pkg/config"
	"github.com/PancyStudios/ZenoxGo/pkg/discord"
	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

// Pipeline is the part of the pipeline the dev commands drive
type Pipeline interface {
	Snapshot() pipeline.Status
	Resume() bool
	Discover(ctx context.Context) error
	CheckPublish(ctx context.Context) error
	DeriveState(ctx context.Context, game models.Game) (pipeline.ProgramState, *models.SpecialProgram, error)
	PublishProgram(ctx context.Context, game models.Game, version string) (models.PublishStats, error)
	PublishProgramToGuild(ctx context.Context, game models.Game, version string, g *models.GuildConfig) (models.PublishStats, error)
}

// Schedules reads and rewrites the stream schedule file
type Schedules interface {
	Get(game models.Game) config.StreamSchedule
	Update(game models.Game, fn func(*config.StreamSchedule)) (config.StreamSchedule, error)
}

// Guilds loads guild configs for previews
type Guilds interface {
	GetOrCreate(ctx context.Context, id string) (*models.GuildConfig, error)
}

// Deps are the collaborators of the dev commands
type Deps struct {
	Pipeline  Pipeline
	Schedules Schedules
	Guilds    Guilds
}

type handlers struct {
	Deps
}

// Register registers all dev commands as /dev subcommands (only in dev guild)
func Register(client *discord.ExtendedClient, d Deps) {
	h := &handlers{Deps: d}
	ch := client.CommandHandler

	devGroup := &discordgo.ApplicationCommand{
		Name:        "dev",
		Description: "Development commands",
		Options: []*discordgo.ApplicationCommandOption{
			ch.BuildSubcommandGroup("dev", "pipeline", "Pipeline state",
				dev("status", "Shows the run state and queue sizes", h.pipelineStatus),
				dev("resume", "Resumes a halted pipeline", h.pipelineResume),
			),
			ch.BuildSubcommandGroup("dev", "queue", "Queued codes",
				dev("list", "Lists the queued code groups of a game", h.queueList, gameOption(true)),
			),
			ch.BuildSubcommandGroup("dev", "wiki", "Wiki codes",
				dev("discover", "Runs a wiki discovery cycle", h.wikiDiscover),
				dev("publish", "Runs a check-and-publish cycle", h.wikiPublish),
			),
			ch.BuildSubcommandGroup("dev", "stream", "Stream schedule",
				dev("view", "Shows the stream schedule of a game", h.streamView, gameOption(true)),
				dev("set", "Updates the stream schedule of a game", h.streamSet, streamSetOptions()...),
				dev("toggle", "Disables or enables stream polling of a game", h.streamToggle, gameOption(true)),
			),
			ch.BuildSubcommandGroup("dev", "program", "Special program codes",
				dev("publish", "Publishes the found program codes to every guild", h.programPublish, gameOption(true)),
				dev("preview", "Sends the program codes to this guild only", h.programPreview, gameOption(true)),
			),
		},
	}

	client.CommandHandler.AddDevCommand(devGroup)
}

func dev(name, description string, run discord.CommandRunFunc, opts ...*discordgo.ApplicationCommandOption) *discord.Command {
	return discord.NewCommand(name, description, "dev", run).WithOptions(opts...).AsDev()
}

func gameOption(required bool) *discordgo.ApplicationCommandOption {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(models.Games))
	for _, g := range models.Games {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  string(g),
			Value: g.DatabaseKey(),
		})
	}
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "game",
		Description: "Game",
		Required:    required,
		Choices:     choices,
	}
}

func streamSetOptions() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		gameOption(true),
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "version",
			Description: "Game version of the stream, e.g. 5.4",
		},
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "stream_time",
			Description: "Stream start as a unix timestamp, 0 to clear",
			MinValue:    new(float64),
		},
		{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         "channel",
			Description:  "Channel of the status message",
			ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "message",
			Description: "ID of the status message",
		},
	}
}
