// Package publisher delivers code notifications to every subscribed guild and
// keeps count of what happened to each delivery.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	zerrors "github.com/PancyStudios/ZenoxGo/pkg/errors"
	"github.com/PancyStudios/ZenoxGo/pkg/logger"
	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

// Delivery errors a Sender reports for recipients that can never be reached
var (
	ErrForbidden      = errors.New("missing permissions")
	ErrUnknownChannel = errors.New("unknown channel")
	ErrUnknownGuild   = errors.New("unknown guild")
)

// permanent reports whether err means the guild should be unsubscribed
func permanent(err error) bool {
	return errors.Is(err, ErrForbidden) || errors.Is(err, ErrUnknownChannel) || errors.Is(err, ErrUnknownGuild)
}

// Message is one outgoing channel message
type Message struct {
	Content    string
	Embed      *discordgo.MessageEmbed
	Components []discordgo.MessageComponent
	// Thumbnail is attached as thumbnail.png when set
	Thumbnail []byte
}

// Sender is the chat platform as seen by the publisher
type Sender interface {
	RoleExists(guildID, roleID string) (bool, error)
	Send(channelID string, msg *Message) error
}

// RecipientStore receives the self-healing writes of a fan-out
type RecipientStore interface {
	ClearChannel(ctx context.Context, guildID string, game models.Game) error
	ClearRole(ctx context.Context, guildID string, game models.Game) error
}

// LocaleMatcher maps a guild language to a locale the renderer supports
type LocaleMatcher interface {
	Match(locale string) string
}

// Rendered is the localized part of a notification
type Rendered struct {
	Content string
	Embed   *discordgo.MessageEmbed
	NoRole  string
}

// Notification is what gets fanned out for one game
type Notification struct {
	Game       models.Game
	Render     func(locale string) Rendered
	Components []discordgo.MessageComponent
	Thumbnail  []byte
}

// Publisher fans a notification out to guilds sequentially
type Publisher struct {
	sender  Sender
	store   RecipientStore
	locales LocaleMatcher
}

func New(sender Sender, store RecipientStore, locales LocaleMatcher) *Publisher {
	return &Publisher{sender: sender, store: store, locales: locales}
}

// Publish delivers n to every recipient. One failing guild never stops the
// others; the returned stats account for every recipient exactly once.
func (p *Publisher) Publish(ctx context.Context, n *Notification, recipients []*models.GuildConfig) models.PublishStats {
	var stats models.PublishStats
	rendered := make(map[string]Rendered)
	render := func(locale string) Rendered {
		locale = p.locales.Match(locale)
		r, ok := rendered[locale]
		if !ok {
			r = n.Render(locale)
			rendered[locale] = r
		}
		return r
	}

	for _, g := range recipients {
		if ctx.Err() != nil {
			// unattempted recipients still have to be counted
			stats.Failed++
			continue
		}

		cfg := g.Codes(n.Game)
		if cfg.Channel == "" {
			stats.NoChannel++
			continue
		}

		var mention string
		warn := false
		if cfg.RolePing != "" {
			exists, err := p.sender.RoleExists(g.ID, cfg.RolePing)
			switch {
			case err != nil && permanent(err):
				p.unsubscribe(ctx, g.ID, n.Game, err)
				stats.Forbidden++
				continue
			case err != nil:
				zerrors.Capture(fmt.Errorf("role lookup in guild %s: %w", g.ID, err), "Publisher")
				stats.Failed++
				continue
			case !exists:
				if err := p.store.ClearRole(ctx, g.ID, n.Game); err != nil {
					zerrors.Capture(fmt.Errorf("clear role of guild %s: %w", g.ID, err), "Publisher")
				}
				stats.NoRole++
				warn = true
			default:
				mention = "<@&" + cfg.RolePing + ">"
			}
		}

		r := render(g.Locale())
		parts := []string{r.Content}
		if mention != "" {
			parts = append(parts, mention)
		}
		if cfg.EveryonePing {
			parts = append(parts, "@everyone")
		}
		if warn {
			parts = append(parts, r.NoRole)
		}

		err := p.sender.Send(cfg.Channel, &Message{
			Content:    strings.Join(parts, " "),
			Embed:      r.Embed,
			Components: n.Components,
			Thumbnail:  n.Thumbnail,
		})
		switch {
		case err == nil:
			stats.Success++
		case permanent(err):
			p.unsubscribe(ctx, g.ID, n.Game, err)
			stats.Forbidden++
		default:
			zerrors.Capture(fmt.Errorf("send to guild %s: %w", g.ID, err), "Publisher")
			stats.Failed++
		}
	}

	logger.Info(fmt.Sprintf("Published %s to %d guilds: %d ok, %d failed, %d forbidden, %d no channel, %d no role",
		n.Game, len(recipients), stats.Success, stats.Failed, stats.Forbidden, stats.NoChannel, stats.NoRole), "Publisher")
	return stats
}

func (p *Publisher) unsubscribe(ctx context.Context, guildID string, game models.Game, cause error) {
	logger.Warn(fmt.Sprintf("Guild %s unreachable for %s (%v), clearing channel", guildID, game, cause), "Publisher")
	if err := p.store.ClearChannel(ctx, guildID, game); err != nil {
		zerrors.Capture(fmt.Errorf("clear channel of guild %s: %w", guildID, err), "Publisher")
	}
}
