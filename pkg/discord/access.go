package discord

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/ZenoxGo/pkg/logger"
)

var errAccessDenied = errors.New("access denied")

// checkAccess keeps dev commands to dev users. The commands are only
// registered in the dev guild, but anyone in that guild can see them.
func (c *ExtendedClient) checkAccess(cmd *Command, ctx *CommandContext) error {
	if !cmd.IsDev {
		return nil
	}
	user := ctx.User()
	if user != nil && c.IsDevUser(user.ID) {
		return nil
	}

	_ = ctx.ReplyEphemeralEmbed(&discordgo.MessageEmbed{
		Title:       "Access Denied",
		Description: "This command is restricted to the bot developers.",
		Color:       0xFF0000,
		Timestamp:   time.Now().Format(time.RFC3339),
	})
	id := "unknown"
	if user != nil {
		id = user.ID
	}
	logger.Warn(fmt.Sprintf("User %s tried to run dev command %s", id, cmd.Name), "Access")
	return errAccessDenied
}
