package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/ZenoxGo/internal/operator"
	zerrors "github.com/PancyStudios/ZenoxGo/pkg/errors"
	"github.com/PancyStudios/ZenoxGo/pkg/logger"
)

const sourceStats = "ClientStats"

// Snapshot is the payload of the stats event
type Snapshot struct {
	Guilds int       `json:"guilds"`
	Users  int       `json:"users"`
	Time   time.Time `json:"time"`
}

// ClientStats stores the member count of every guild and broadcasts totals
type ClientStats struct {
	guilds   GuildRepository
	gateway  Gateway
	reporter operator.Reporter
	events   EventSink
	now      func() time.Time
}

func NewClientStats(guilds GuildRepository, gateway Gateway, reporter operator.Reporter, events EventSink) *ClientStats {
	return &ClientStats{guilds: guilds, gateway: gateway, reporter: reporter, events: events, now: time.Now}
}

func (s *ClientStats) Run(ctx context.Context) error {
	guilds := s.gateway.Guilds()
	snap := Snapshot{Guilds: len(guilds), Time: s.now()}

	failed := 0
	for _, g := range guilds {
		snap.Users += g.MemberCount
		if err := s.guilds.SetMemberCount(ctx, g.ID, g.MemberCount); err != nil {
			failed++
			zerrors.Capture(fmt.Errorf("store member count of %s: %w", g.ID, err), sourceStats)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if s.events != nil {
		if err := s.events.PublishEvent("stats", snap); err != nil {
			logger.Warn(fmt.Sprintf("Failed to publish stats: %v", err), sourceStats)
		}
	}
	s.reporter.Report(operator.Report{
		Source:      sourceStats,
		Title:       "Client Stats",
		Description: fmt.Sprintf("Guilds: %d\nUsers: %d", snap.Guilds, snap.Users),
		Level:       logger.LevelDebug,
	})
	if failed > 0 {
		return fmt.Errorf("member count of %d guilds not stored", failed)
	}
	return nil
}
