package publisher

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// DiscordSender sends through a discordgo session
type DiscordSender struct {
	s *discordgo.Session
}

func NewDiscordSender(s *discordgo.Session) *DiscordSender {
	return &DiscordSender{s: s}
}

// RoleExists checks the gateway state first and asks the API only for
// guilds the state does not know
func (d *DiscordSender) RoleExists(guildID, roleID string) (bool, error) {
	if d.s.StateEnabled && d.s.State != nil {
		if _, err := d.s.State.Guild(guildID); err == nil {
			_, err := d.s.State.Role(guildID, roleID)
			return err == nil, nil
		}
	}

	roles, err := d.s.GuildRoles(guildID)
	if err != nil {
		return false, classifyREST(err)
	}
	for _, r := range roles {
		if r.ID == roleID {
			return true, nil
		}
	}
	return false, nil
}

func (d *DiscordSender) Send(channelID string, msg *Message) error {
	send := &discordgo.MessageSend{
		Content:    msg.Content,
		Components: msg.Components,
	}
	if msg.Embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{msg.Embed}
	}
	if len(msg.Thumbnail) > 0 {
		send.Files = []*discordgo.File{{
			Name:        ThumbnailName,
			ContentType: "image/png",
			Reader:      bytes.NewReader(msg.Thumbnail),
		}}
	}

	if _, err := d.s.ChannelMessageSendComplex(channelID, send); err != nil {
		return classifyREST(err)
	}
	return nil
}

// classifyREST maps Discord API errors onto the publisher sentinels
func classifyREST(err error) error {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return err
	}
	if rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeUnknownChannel:
			return fmt.Errorf("%w: %v", ErrUnknownChannel, err)
		case discordgo.ErrCodeUnknownGuild:
			return fmt.Errorf("%w: %v", ErrUnknownGuild, err)
		case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
			return fmt.Errorf("%w: %v", ErrForbidden, err)
		}
	}
	if rest.Response != nil && rest.Response.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	return err
}
