package dev

import (
	"errors"
	"fmt"

	"github.com/PancyStudios/ZenoxGo/internal/pipeline"
	"github.com/PancyStudios/ZenoxGo/pkg/discord"
	"github.com/PancyStudios/ZenoxGo/pkg/logger"
)

func (h *handlers) pipelineStatus(ctx *discord.CommandContext) error {
	return ctx.ReplyEphemeralEmbed(statusEmbed(h.Pipeline.Snapshot()))
}

func (h *handlers) pipelineResume(ctx *discord.CommandContext) error {
	if !h.Pipeline.Resume() {
		return ctx.ReplyEphemeralEmbed(embed("Pipeline", "The pipeline is not halted.", colorWarn))
	}
	logger.Info(fmt.Sprintf("User %s resumed the pipeline", userName(ctx)), "DevCommands")
	return ctx.ReplyEphemeralEmbed(embed("Pipeline", "The pipeline was resumed.", colorOK))
}

func (h *handlers) queueList(ctx *discord.CommandContext) error {
	game, err := gameFrom(ctx)
	if err != nil {
		return ctx.ReplyEphemeral(err.Error())
	}
	return ctx.ReplyEphemeralEmbed(queueEmbed(game, h.Pipeline.Snapshot().Queues[game]))
}

func (h *handlers) wikiDiscover(ctx *discord.CommandContext) error {
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("User %s started a wiki discovery", userName(ctx)), "DevCommands")

	if err := h.Pipeline.Discover(ctx.Context()); err != nil {
		return replyError(ctx, cycleErrorTitle(err, "Discovery"), err)
	}
	return reply(ctx, statusEmbed(h.Pipeline.Snapshot()))
}

func (h *handlers) wikiPublish(ctx *discord.CommandContext) error {
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("User %s started a publish cycle", userName(ctx)), "DevCommands")

	if err := h.Pipeline.CheckPublish(ctx.Context()); err != nil {
		return replyError(ctx, cycleErrorTitle(err, "Publish"), err)
	}
	return reply(ctx, statusEmbed(h.Pipeline.Snapshot()))
}

func cycleErrorTitle(err error, cycle string) string {
	if errors.Is(err, pipeline.ErrHalted) {
		return "Pipeline Halted"
	}
	return cycle + " Failed"
}
