package dev

import (
	"errors"
	"fmt"

	"github.com/PancyStudios/ZenoxGo/internal/pipeline"
	"github.com/PancyStudios/ZenoxGo/pkg/discord"
	"github.com/PancyStudios/ZenoxGo/pkg/logger"
	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

var (
	errNoVersion     = errors.New("no stream version scheduled")
	errConfigOffline = errors.New("guild config unavailable while the database is offline")
)

// programTarget resolves the game option and the scheduled version
func (h *handlers) programTarget(ctx *discord.CommandContext) (models.Game, string, error) {
	game, err := gameFrom(ctx)
	if err != nil {
		return "", "", err
	}
	version := h.Schedules.Get(game).Version
	if version == "" {
		return "", "", fmt.Errorf("%w for %s", errNoVersion, game)
	}
	return game, version, nil
}

func programErrorTitle(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrProgramNotFound):
		return "Program Not Found"
	case errors.Is(err, pipeline.ErrProgramPublished):
		return "Program Already Published"
	}
	return "Program Publish Failed"
}

func (h *handlers) programPublish(ctx *discord.CommandContext) error {
	game, version, err := h.programTarget(ctx)
	if err != nil {
		return ctx.ReplyEphemeral(err.Error())
	}
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("User %s is publishing the %s %s program", userName(ctx), game, version), "DevCommands")

	stats, err := h.Pipeline.PublishProgram(ctx.Context(), game, version)
	if err != nil {
		return replyError(ctx, programErrorTitle(err), err)
	}
	return reply(ctx, statsEmbed(fmt.Sprintf("Published %s %s", game, version), stats))
}

func (h *handlers) programPreview(ctx *discord.CommandContext) error {
	game, version, err := h.programTarget(ctx)
	if err != nil {
		return ctx.ReplyEphemeral(err.Error())
	}
	if ctx.Interaction.GuildID == "" {
		return ctx.ReplyEphemeral("Previews can only be sent in a guild.")
	}
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}

	g, err := h.Guilds.GetOrCreate(ctx.Context(), ctx.Interaction.GuildID)
	if err == nil && g == nil {
		err = errConfigOffline
	}
	if err != nil {
		return replyError(ctx, "Guild Config Failed", err)
	}
	stats, err := h.Pipeline.PublishProgramToGuild(ctx.Context(), game, version, g)
	if err != nil {
		return replyError(ctx, programErrorTitle(err), err)
	}
	return reply(ctx, statsEmbed(fmt.Sprintf("Preview %s %s", game, version), stats))
}
