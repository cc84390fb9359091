// Package operator posts job reports to the operator channel.
package operator

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/ZenoxGo/pkg/logger"
)

const footer = "Zenox Go"

// Discord rejects longer embed descriptions
const maxDescription = 4096

// Field is an inline counter shown under the description
type Field struct {
	Name  string
	Value string
}

// Report is one operator message
type Report struct {
	Source      string // job name, used as log prefix and embed author
	Title       string
	Content     string
	Description string
	Level       logger.LogLevel
	Fields      []Field
}

// Reporter accepts job reports
type Reporter interface {
	Report(r Report)
}

// Channel sends reports as embeds to one Discord channel. Without a channel
// reports are only logged.
type Channel struct {
	s         *discordgo.Session
	channelID string
}

func NewChannel(s *discordgo.Session, channelID string) *Channel {
	return &Channel{s: s, channelID: channelID}
}

// Embed renders a report
func Embed(r Report) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       r.Title,
		Description: truncate(r.Description, maxDescription),
		Color:       r.Level.DiscordColor(),
		Footer:      &discordgo.MessageEmbedFooter{Text: footer},
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if r.Source != "" {
		e.Author = &discordgo.MessageEmbedAuthor{Name: r.Source}
	}
	for _, f := range r.Fields {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: true})
	}
	return e
}

// truncate cuts s to at most n characters, ending in "..." when cut
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

func (c *Channel) Report(r Report) {
	line := r.Title
	if r.Content != "" {
		line += " | " + r.Content
	}
	logAt(r.Level, line, r.Source)

	if c.s == nil || c.channelID == "" {
		return
	}
	_, err := c.s.ChannelMessageSendComplex(c.channelID, &discordgo.MessageSend{
		Content: r.Content,
		Embeds:  []*discordgo.MessageEmbed{Embed(r)},
	})
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to send operator report %q: %v", r.Title, err), "Operator")
	}
}

// EditStatus rewrites a pinned status message, e.g. the stream poll board
func (c *Channel) EditStatus(channelID, messageID, content string, embed *discordgo.MessageEmbed, thumbnail []byte) error {
	if c.s == nil {
		return nil
	}
	edit := discordgo.NewMessageEdit(channelID, messageID).SetContent(content)
	if embed != nil {
		edit.SetEmbeds([]*discordgo.MessageEmbed{embed})
	}
	if len(thumbnail) > 0 {
		edit.Files = []*discordgo.File{{Name: "thumbnail.png", ContentType: "image/png", Reader: bytes.NewReader(thumbnail)}}
		edit.Attachments = &[]*discordgo.MessageAttachment{}
	}
	_, err := c.s.ChannelMessageEditComplex(edit)
	return err
}

func logAt(level logger.LogLevel, msg, prefix string) {
	if prefix == "" {
		prefix = "Operator"
	}
	msg = strings.TrimSpace(msg)
	switch level {
	case logger.LevelCritical:
		logger.Critical(msg, prefix)
	case logger.LevelError:
		logger.Error(msg, prefix)
	case logger.LevelWarn:
		logger.Warn(msg, prefix)
	case logger.LevelSuccess:
		logger.Success(msg, prefix)
	case logger.LevelDebug:
		logger.Debug(msg, prefix)
	default:
		logger.Info(msg, prefix)
	}
}
