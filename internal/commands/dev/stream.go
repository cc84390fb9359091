package dev

import (
	"fmt"

	"github.com/PancyStudios/ZenoxGo/pkg/config"
	"github.com/PancyStudios/ZenoxGo/pkg/discord"
	"github.com/PancyStudios/ZenoxGo/pkg/logger"
	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

// scheduleChange holds the options given to /dev stream set; nil means unchanged
type scheduleChange struct {
	Version    *string
	StreamTime *int64
	Channel    *string
	Message    *string
}

func (c scheduleChange) empty() bool {
	return c.Version == nil && c.StreamTime == nil && c.Channel == nil && c.Message == nil
}

func (c scheduleChange) apply(s *config.StreamSchedule) {
	if c.Version != nil {
		s.Version = *c.Version
	}
	if c.StreamTime != nil {
		s.StreamTime = *c.StreamTime
	}
	if c.Channel != nil {
		s.Channel = *c.Channel
	}
	if c.Message != nil {
		s.Message = *c.Message
	}
}

func changeFrom(ctx *discord.CommandContext) scheduleChange {
	var c scheduleChange
	if ctx.HasOption("version") {
		v := ctx.GetStringOption("version")
		c.Version = &v
	}
	if ctx.HasOption("stream_time") {
		t := ctx.GetIntOption("stream_time")
		c.StreamTime = &t
	}
	if opt := ctx.GetOption("channel"); opt != nil {
		// the value is the channel ID
		id, _ := opt.Value.(string)
		c.Channel = &id
	}
	if ctx.HasOption("message") {
		m := ctx.GetStringOption("message")
		c.Message = &m
	}
	return c
}

func (h *handlers) showSchedule(ctx *discord.CommandContext, game models.Game, sched config.StreamSchedule) error {
	state, _, err := h.Pipeline.DeriveState(ctx.Context(), game)
	if err != nil {
		return replyError(ctx, "Stream State Failed", err)
	}
	return reply(ctx, scheduleEmbed(game, sched, state))
}

func (h *handlers) streamView(ctx *discord.CommandContext) error {
	game, err := gameFrom(ctx)
	if err != nil {
		return ctx.ReplyEphemeral(err.Error())
	}
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}
	return h.showSchedule(ctx, game, h.Schedules.Get(game))
}

func (h *handlers) streamSet(ctx *discord.CommandContext) error {
	game, err := gameFrom(ctx)
	if err != nil {
		return ctx.ReplyEphemeral(err.Error())
	}
	change := changeFrom(ctx)
	if change.empty() {
		return ctx.ReplyEphemeral("Nothing to update.")
	}
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}

	sched, err := h.Schedules.Update(game, change.apply)
	if err != nil {
		return replyError(ctx, "Stream Update Failed", err)
	}
	logger.Info(fmt.Sprintf("User %s updated the %s stream schedule", userName(ctx), game), "DevCommands")
	return h.showSchedule(ctx, game, sched)
}

func (h *handlers) streamToggle(ctx *discord.CommandContext) error {
	game, err := gameFrom(ctx)
	if err != nil {
		return ctx.ReplyEphemeral(err.Error())
	}
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}

	sched, err := h.Schedules.Update(game, func(s *config.StreamSchedule) {
		s.Disabled = !s.Disabled
	})
	if err != nil {
		return replyError(ctx, "Stream Update Failed", err)
	}
	logger.Info(fmt.Sprintf("User %s set %s stream polling disabled=%t", userName(ctx), game, sched.Disabled), "DevCommands")
	return h.showSchedule(ctx, game, sched)
}
