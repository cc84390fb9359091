package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PancyStudios/ZenoxGo/internal/operator"
	"github.com/PancyStudios/ZenoxGo/internal/sources"
	zerrors "github.com/PancyStudios/ZenoxGo/pkg/errors"
	"github.com/PancyStudios/ZenoxGo/pkg/logger"
	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

const sourceWiki = "WikiCodes"

// Discover scrapes the wiki of every game and queues the new code groups.
// Games fail independently; their errors are joined in the result.
func (p *Pipeline) Discover(ctx context.Context) error {
	p.cycle.Lock()
	defer p.cycle.Unlock()
	if err := p.checkRunning(); err != nil {
		return err
	}

	var added []*models.Code
	var errs []error
	for _, game := range models.Games {
		if game.WikiPage() == "" {
			continue
		}
		leads, err := p.discoverGame(ctx, game)
		added = append(added, leads...)
		if err != nil {
			errs = append(errs, err)
			zerrors.Capture(err, sourceWiki)
			level := logger.LevelError
			if errors.Is(err, sources.ErrHeaderMismatch) {
				level = logger.LevelCritical
			}
			p.d.Reporter.Report(operator.Report{
				Source:      sourceWiki,
				Title:       "Error",
				Content:     "Error while executing Task for " + string(game),
				Description: err.Error(),
				Level:       level,
			})
		}
	}

	if len(added) > 0 {
		lines := make([]string, 0, len(added))
		for _, c := range added {
			lines = append(lines, fmt.Sprintf("%s | %s | Rewards: %s", c.Code, c.Game, rewardList(c.Rewards)))
		}
		p.d.Reporter.Report(operator.Report{
			Source:      sourceWiki,
			Title:       "Added Codes",
			Content:     fmt.Sprintf("Added %d Codes to Queue | Codes in Queue per Game: %s", len(added), p.queueSizes()),
			Description: strings.Join(lines, "\n"),
			Level:       logger.LevelSuccess,
		})
		p.emit("codes.queued", map[string]interface{}{"codes": leadNames(added)})
	} else {
		p.d.Reporter.Report(operator.Report{
			Source:  sourceWiki,
			Title:   "No Codes Found",
			Content: "No New Codes found in Wiki",
			Level:   logger.LevelWarn,
		})
	}
	return errors.Join(errs...)
}

func (p *Pipeline) discoverGame(ctx context.Context, game models.Game) ([]*models.Code, error) {
	rows, err := p.d.Wiki.FetchWiki(ctx, game)
	if err != nil {
		return nil, err
	}

	var added []*models.Code
	for _, row := range rows {
		group, err := p.materialize(ctx, game, row)
		if err != nil {
			return added, fmt.Errorf("store %s codes %q: %w", game, row.Title, err)
		}

		lead := group.Lead()
		if lead.Published || lead.China() || lead.Outcome() != models.OutcomeUnknown {
			continue
		}
		if p.enqueue(game, group) {
			logger.Info(fmt.Sprintf("Queued %s (%s)", lead.Code, game), sourceWiki)
			added = append(added, lead)
		}
	}
	return added, nil
}

// materialize loads every alias of a row and fills in what the store lacks
func (p *Pipeline) materialize(ctx context.Context, game models.Game, row sources.WikiRow) (Group, error) {
	group := make(Group, 0, len(row.Aliases))
	for _, alias := range row.Aliases {
		c, err := p.d.Codes.GetOrCreate(ctx, game, alias)
		if err != nil {
			return nil, err
		}
		if c.DiscoveredUnix == nil {
			if err := p.d.Codes.SetDiscovered(ctx, c, p.now().Unix()); err != nil {
				return nil, err
			}
		}
		if c.IsChina == nil {
			if err := p.d.Codes.SetRegion(ctx, c, row.China()); err != nil {
				return nil, err
			}
		}
		if len(c.Rewards) == 0 {
			for _, r := range row.Rewards {
				if _, err := p.d.Codes.MergeReward(ctx, c, r); err != nil {
					return nil, err
				}
			}
		}
		group = append(group, c)
	}
	return group, nil
}

func (p *Pipeline) queueSizes() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var parts []string
	for _, g := range models.Games {
		if n := len(p.queues[g]); n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", g, n))
		}
	}
	return strings.Join(parts, ", ")
}

func rewardList(rewards []models.CodeReward) string {
	parts := make([]string, len(rewards))
	for i, r := range rewards {
		parts[i] = fmt.Sprintf("%s x%d", r.Reward, r.Amount)
	}
	return strings.Join(parts, ", ")
}

func leadNames(codes []*models.Code) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = c.Code
	}
	return out
}
