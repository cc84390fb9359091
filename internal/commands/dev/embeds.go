package dev

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/ZenoxGo/internal/pipeline"
	"github.com/PancyStudios/ZenoxGo/pkg/config"
	"github.com/PancyStudios/ZenoxGo/pkg/discord"
	"github.com/PancyStudios/ZenoxGo/pkg/logger"
	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

const (
	colorOK    = 0x00FF00
	colorInfo  = 0x00BFFF
	colorWarn  = 0xFFFF00
	colorError = 0xFF0000
)

// Discord rejects embeds with more fields
const maxFields = 25

func embed(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

// reply answers a deferred interaction, logging what cannot be delivered
func reply(ctx *discord.CommandContext, e *discordgo.MessageEmbed) error {
	if err := ctx.EditReplyEmbed(e); err != nil {
		logger.Error(fmt.Sprintf("Error sending reply: %v", err), "DevCommands")
		return err
	}
	return nil
}

func replyError(ctx *discord.CommandContext, title string, err error) error {
	logger.Warn(fmt.Sprintf("%s: %v", title, err), "DevCommands")
	return reply(ctx, embed(title, "```\n"+err.Error()+"\n```", colorError))
}

func gameFrom(ctx *discord.CommandContext) (models.Game, error) {
	return models.ParseGame(ctx.GetStringOption("game"))
}

func userName(ctx *discord.CommandContext) string {
	if u := ctx.User(); u != nil {
		return u.Username
	}
	return "unknown"
}

func statusEmbed(st pipeline.Status) *discordgo.MessageEmbed {
	color := colorOK
	desc := fmt.Sprintf("State: `%s`\nPublish limit: `%d` groups per game", st.State, st.Limit)
	if st.State == pipeline.Halted.String() {
		color = colorError
		desc += "\nReason: `" + st.Reason + "`"
		if st.HaltedAt != nil {
			desc += fmt.Sprintf("\nHalted: <t:%d:R>", st.HaltedAt.Unix())
		}
	}
	e := embed("Pipeline Status", desc, color)
	for _, game := range models.Games {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:   string(game),
			Value:  fmt.Sprintf("%d queued", len(st.Queues[game])),
			Inline: true,
		})
	}
	return e
}

func queueEmbed(game models.Game, groups []pipeline.QueuedGroup) *discordgo.MessageEmbed {
	if len(groups) == 0 {
		return embed("Queue "+string(game), "No queued codes.", colorWarn)
	}
	e := embed(fmt.Sprintf("Queue %s (%d)", game, len(groups)), "", colorInfo)
	for i, g := range groups {
		if i == maxFields {
			e.Description = fmt.Sprintf("Showing the first %d groups.", maxFields)
			break
		}
		rewards := make([]string, 0, len(g.Rewards))
		for _, r := range g.Rewards {
			rewards = append(rewards, fmt.Sprintf("%s x%d", r.Reward, r.Amount))
		}
		value := "No rewards"
		if len(rewards) > 0 {
			value = strings.Join(rewards, ", ")
		}
		if len(g.Codes) > 1 {
			value = "Aliases: `" + strings.Join(g.Codes[1:], "`, `") + "`\n" + value
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%d. %s", i+1, g.Lead),
			Value: value,
		})
	}
	return e
}

func scheduleEmbed(game models.Game, sched config.StreamSchedule, state pipeline.ProgramState) *discordgo.MessageEmbed {
	field := func(name, value string) *discordgo.MessageEmbedField {
		if value == "" {
			value = "Not set"
		}
		return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: true}
	}

	streamTime := ""
	if sched.StreamTime != 0 {
		streamTime = fmt.Sprintf("<t:%d:F>", sched.StreamTime)
	}
	channel := ""
	if sched.Channel != "" {
		channel = "<#" + sched.Channel + ">"
	}

	e := embed("Stream "+string(game), fmt.Sprintf("State: `%d` `%s`", state, state), colorInfo)
	if sched.Disabled {
		e.Color = colorWarn
	}
	e.Fields = []*discordgo.MessageEmbedField{
		field("Version", sched.Version),
		field("Stream Time", streamTime),
		field("Disabled", fmt.Sprintf("%t", sched.Disabled)),
		field("Channel", channel),
		field("Message", sched.Message),
	}
	return e
}

func statsEmbed(title string, s models.PublishStats) *discordgo.MessageEmbed {
	counts := map[string]int{
		"Success":    s.Success,
		"Failed":     s.Failed,
		"Forbidden":  s.Forbidden,
		"No Channel": s.NoChannel,
		"No Role":    s.NoRole,
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	e := embed(title, fmt.Sprintf("%d guilds", s.Total()), colorOK)
	for _, name := range names {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:   name,
			Value:  fmt.Sprintf("%d", counts[name]),
			Inline: true,
		})
	}
	return e
}
