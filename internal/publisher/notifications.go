package publisher

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

// ThumbnailName is the attachment name embeds refer to
const ThumbnailName = "thumbnail.png"

const embedColor = 0x6574F8

// maxButtonsPerRow is Discord's limit for one action row
const maxButtonsPerRow = 5

// Translator is the subset of l10n the renderers need
type Translator interface {
	T(locale, key string, args ...string) string
	Number(locale string, n int) string
}

// RedeemButtons builds one link button per code, five per row
func RedeemButtons(game models.Game, codes []string) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	for start := 0; start < len(codes); start += maxButtonsPerRow {
		end := start + maxButtonsPerRow
		if end > len(codes) {
			end = len(codes)
		}
		var buttons []discordgo.MessageComponent
		for _, c := range codes[start:end] {
			buttons = append(buttons, discordgo.Button{
				Label: c,
				Style: discordgo.LinkButton,
				URL:   game.RedeemURL(c),
			})
		}
		rows = append(rows, discordgo.ActionsRow{Components: buttons})
	}
	return rows
}

func codeNames(codes []*models.Code) []string {
	names := make([]string, len(codes))
	for i, c := range codes {
		names[i] = c.Code
	}
	return names
}

// CodesNotification is the wiki code announcement. codes are the lead codes
// of the published groups, rewards their merged rewards.
func CodesNotification(tr Translator, game models.Game, codes []*models.Code, rewards []models.CodeReward, thumbnail []byte) *Notification {
	names := codeNames(codes)
	return &Notification{
		Game:       game,
		Components: RedeemButtons(game, names),
		Thumbnail:  thumbnail,
		Render: func(locale string) Rendered {
			var desc strings.Builder
			link := tr.T(locale, "direct_link")
			for _, c := range names {
				fmt.Fprintf(&desc, "> %s | **[%s](%s)**\n", c, link, game.RedeemURL(c))
			}
			if len(rewards) > 0 {
				fmt.Fprintf(&desc, "\n**〓 %s 〓**\n", tr.T(locale, "rewards"))
				for _, r := range rewards {
					fmt.Fprintf(&desc, "**%s ×%s**\n", r.Reward, tr.Number(locale, r.Amount))
				}
			}

			embed := &discordgo.MessageEmbed{
				Title:       tr.T(locale, "wikicodes_embed.title"),
				Description: desc.String(),
				Color:       embedColor,
				Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: "attachment://" + ThumbnailName},
				Footer:      &discordgo.MessageEmbedFooter{Text: tr.T(locale, "wikicodes_embed.footer", "game", string(game))},
			}
			return Rendered{
				Content: tr.T(locale, "wikicodes.content"),
				Embed:   embed,
				NoRole:  tr.T(locale, "role_not_found_error"),
			}
		},
	}
}

// ProgramNotification announces the codes of a livestream
func ProgramNotification(tr Translator, prog *models.SpecialProgram, codes []*models.Code, thumbnail []byte) *Notification {
	names := codeNames(codes)
	game := prog.Game
	return &Notification{
		Game:       game,
		Components: RedeemButtons(game, names),
		Thumbnail:  thumbnail,
		Render: func(locale string) Rendered {
			var field strings.Builder
			link := tr.T(locale, "direct_link")
			for _, c := range codes {
				fmt.Fprintf(&field, "%s | **[%s](%s)**", c.Code, link, game.RedeemURL(c.Code))
				for _, r := range c.Rewards {
					fmt.Fprintf(&field, " %s ×%s", r.Reward, tr.Number(locale, r.Amount))
				}
				field.WriteByte('\n')
			}
			value := field.String()
			if value == "" {
				value = tr.T(locale, "no_codes_found")
			}

			embed := &discordgo.MessageEmbed{
				Title:       tr.T(locale, "program.title", "version", prog.Version),
				Description: tr.T(locale, "program.description", "game", string(game)),
				Color:       embedColor,
				Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: "attachment://" + ThumbnailName},
				Fields: []*discordgo.MessageEmbedField{
					{Name: tr.T(locale, "rewards"), Value: value},
				},
			}
			if prog.Image != nil && *prog.Image != "" {
				embed.Image = &discordgo.MessageEmbedImage{URL: *prog.Image}
			}
			if prog.ExpireUnix != nil {
				embed.Description += "\n" + tr.T(locale, "program.expires", "time", fmt.Sprintf("<t:%d:R>", *prog.ExpireUnix))
			}
			return Rendered{
				Content: tr.T(locale, "wikicodes.content"),
				Embed:   embed,
				NoRole:  tr.T(locale, "role_not_found_error"),
			}
		},
	}
}
