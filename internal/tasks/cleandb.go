package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/ZenoxGo/internal/operator"
	zerrors "github.com/PancyStudios/ZenoxGo/pkg/errors"
	"github.com/PancyStudios/ZenoxGo/pkg/logger"
)

const sourceCleanDB = "cleanDB"

// CleanResult counts what happened to each stored guild
type CleanResult struct {
	Skipped  int `json:"skipped"`
	Restored int `json:"restored"`
	Pending  int `json:"pending"`
	Deleted  int `json:"deleted"`
	Error    int `json:"error"`
	Created  int `json:"created"`
}

// CleanDB removes the configuration of guilds the bot left. A guild is
// flagged on the first run it is missing and deleted on the next one, so a
// short outage of the gateway cache never wipes a configuration.
type CleanDB struct {
	guilds   GuildRepository
	gateway  Gateway
	reporter operator.Reporter
}

func NewCleanDB(guilds GuildRepository, gateway Gateway, reporter operator.Reporter) *CleanDB {
	return &CleanDB{guilds: guilds, gateway: gateway, reporter: reporter}
}

func (c *CleanDB) Run(ctx context.Context) error {
	start := time.Now()

	joined := make(map[string]bool)
	for _, g := range c.gateway.Guilds() {
		joined[g.ID] = true
	}

	stored, err := c.guilds.All(ctx)
	if err != nil {
		return fmt.Errorf("load guilds: %w", err)
	}

	var res CleanResult
	seen := make(map[string]bool, len(stored))
	for _, g := range stored {
		seen[g.ID] = true
		var err error
		switch {
		case joined[g.ID] && g.PendingDeletion:
			if err = c.guilds.SetPendingDeletion(ctx, g.ID, false); err == nil {
				res.Restored++
			}
		case joined[g.ID]:
			res.Skipped++
		case g.PendingDeletion:
			if err = c.guilds.Delete(ctx, g.ID); err == nil {
				res.Deleted++
			}
		default:
			if err = c.guilds.SetPendingDeletion(ctx, g.ID, true); err == nil {
				res.Pending++
			}
		}
		if err != nil {
			zerrors.Capture(fmt.Errorf("clean guild %s: %w", g.ID, err), sourceCleanDB)
			res.Error++
		}
	}

	for id := range joined {
		if seen[id] {
			continue
		}
		if _, err := c.guilds.GetOrCreate(ctx, id); err != nil {
			zerrors.Capture(fmt.Errorf("create guild %s: %w", id, err), sourceCleanDB)
			res.Error++
			continue
		}
		res.Created++
	}

	level := logger.LevelInfo
	if res.Error > 0 {
		level = logger.LevelWarn
	}
	desc := fmt.Sprintf("Guilds\n```\n%d Skipped\n%d Restored\n%d Pending\n%d Deleted\n%d Created\n%d Error\n```\nTask Duration: %.3fs",
		res.Skipped, res.Restored, res.Pending, res.Deleted, res.Created, res.Error, time.Since(start).Seconds())
	c.reporter.Report(operator.Report{
		Source:      sourceCleanDB,
		Title:       "Database CleanUp Results",
		Description: desc,
		Level:       level,
	})
	return nil
}
