package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/PancyStudios/ZenoxGo/internal/codes"
	"github.com/PancyStudios/ZenoxGo/internal/operator"
	"github.com/PancyStudios/ZenoxGo/internal/publisher"
	zerrors "github.com/PancyStudios/ZenoxGo/pkg/errors"
	"github.com/PancyStudios/ZenoxGo/pkg/logger"
	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

type removal struct {
	group   Group
	retcode int
	message string
}

// CheckPublish validates up to the limit of queued groups per game and
// publishes the ones that redeemed. Claimed or invalid groups leave the queue;
// anything else halts the pipeline and ends the cycle at once.
func (p *Pipeline) CheckPublish(ctx context.Context) error {
	p.cycle.Lock()
	defer p.cycle.Unlock()
	if err := p.checkRunning(); err != nil {
		return err
	}

	runID := uuid.NewString()
	for _, game := range models.Games {
		if err := p.checkPublishGame(ctx, game, runID); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) checkPublishGame(ctx context.Context, game models.Game, runID string) error {
	heads := p.heads(game, p.d.Limit)
	if len(heads) == 0 {
		return nil
	}

	// load recipients before spending redemptions on codes we could not deliver
	recipients, err := p.d.Recipients.All(ctx)
	if err != nil {
		err = fmt.Errorf("load guilds for %s: %w", game, err)
		zerrors.Capture(err, sourceWiki)
		p.d.Reporter.Report(operator.Report{
			Source:      sourceWiki,
			Title:       "Error",
			Content:     "Could not load guilds, skipped publishing",
			Description: err.Error(),
			Level:       logger.LevelError,
		})
		return nil
	}

	var published []Group
	var removed []removal
	for _, g := range heads {
		lead := g.Lead()
		res, err := p.d.Redeemer.Redeem(ctx, game, lead.Code)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			err = fmt.Errorf("redeem %s (%s): %w", lead.Code, game, err)
			p.halt(sourceWiki, err)
			return err
		}

		if res.Outcome.Soft() {
			p.remove(game, lead.Code)
			for _, c := range g {
				if err := p.d.Codes.SetRedeemed(ctx, c, false); err != nil {
					zerrors.Capture(fmt.Errorf("mark %s unredeemable: %w", c.Code, err), sourceWiki)
				}
			}
			removed = append(removed, removal{group: g, retcode: res.Retcode, message: res.Message})
			logger.Info(fmt.Sprintf("Removed %s from %s queue: %s (%d)", lead.Code, game, res.Outcome, res.Retcode), sourceWiki)
			continue
		}

		if err := p.d.Codes.SetRedeemed(ctx, lead, true); err != nil {
			err = fmt.Errorf("mark %s redeemed: %w", lead.Code, err)
			p.halt(sourceWiki, err)
			return err
		}
		published = append(published, g)
	}

	if len(removed) > 0 {
		lines := make([]string, len(removed))
		for i, r := range removed {
			lines[i] = fmt.Sprintf("Code: %s | Retcode: %d | Message: %s", r.group.Lead().Code, r.retcode, r.message)
		}
		p.d.Reporter.Report(operator.Report{
			Source:      sourceWiki,
			Title:       "Removed Codes",
			Content:     "Removed Codes from Queue",
			Description: strings.Join(lines, "\n"),
			Level:       logger.LevelWarn,
		})
	}
	if len(published) == 0 {
		return nil
	}

	leads := make([]*models.Code, len(published))
	for i, g := range published {
		leads[i] = g.Lead()
	}
	n := publisher.CodesNotification(p.d.Translator, game, leads, codes.MergeRewards(leads...), p.thumbnail(game))
	stats := p.d.Fanout.Publish(ctx, n, recipients)

	// mark and pop in queue order, the published groups are the queue head now
	for _, g := range published {
		for _, c := range g {
			if err := p.d.Codes.SetPublished(ctx, c, true); err != nil {
				err = fmt.Errorf("mark %s published: %w", c.Code, err)
				p.halt(sourceWiki, err)
				return err
			}
		}
		if err := p.popHead(game, g.Lead().Code); err != nil {
			p.halt(sourceWiki, err)
			return err
		}
	}

	p.record(ctx, models.AnalyticsWikiCodes, models.PublishRecord{
		Type:  models.RecordSendWikiCodes,
		Game:  game,
		RunID: runID,
		Time:  p.now(),
		Stats: stats,
	})
	p.reportStats(sourceWiki, "Published Codes",
		fmt.Sprintf("Published %d Codes | Codes in Queue for %s: %d", len(published), game, p.QueueLen(game)), stats)
	p.emit("codes.published", map[string]interface{}{
		"game":   game,
		"codes":  leadNames(leads),
		"run_id": runID,
		"stats":  stats,
	})
	return nil
}

func (p *Pipeline) record(ctx context.Context, collection string, rec models.PublishRecord) {
	if p.d.Analytics == nil {
		return
	}
	if err := p.d.Analytics.InsertPublishRecord(ctx, collection, rec); err != nil {
		zerrors.Capture(fmt.Errorf("write analytics record: %w", err), "Analytics")
	}
}

func (p *Pipeline) reportStats(source, title, content string, s models.PublishStats) {
	p.d.Reporter.Report(operator.Report{
		Source:  source,
		Title:   title,
		Content: content,
		Level:   logger.LevelSuccess,
		Fields: []operator.Field{
			{Name: "Success", Value: fmt.Sprint(s.Success)},
			{Name: "Failed", Value: fmt.Sprint(s.Failed)},
			{Name: "Forbidden", Value: fmt.Sprint(s.Forbidden)},
			{Name: "No Channel", Value: fmt.Sprint(s.NoChannel)},
			{Name: "No Role", Value: fmt.Sprint(s.NoRole)},
		},
	})
}
