package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/PancyStudios/ZenoxGo/internal/operator"
	"github.com/PancyStudios/ZenoxGo/internal/publisher"
	"github.com/PancyStudios/ZenoxGo/internal/sources"
	zerrors "github.com/PancyStudios/ZenoxGo/pkg/errors"
	"github.com/PancyStudios/ZenoxGo/pkg/logger"
	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

const sourceStream = "HoyolabCodes"

// pollInterval is only used to tell readers of the status board when it changes next
const pollInterval = 180

// ProgramState is derived from the stream schedule and the program flags
type ProgramState int

const (
	StateDisabled ProgramState = iota
	StateNoSchedule
	StateNotYetLive
	StateDistributed
	StateSearching
	StateFound
)

var stateNames = [...]string{"Disabled", "No Schedule", "Not yet live", "Distributed", "Searching", "Found"}

func (s ProgramState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

var (
	ErrProgramNotFound  = errors.New("program codes not found yet")
	ErrProgramPublished = errors.New("program already published")
)

// DeriveState computes the state of the scheduled program of a game
func (p *Pipeline) DeriveState(ctx context.Context, game models.Game) (ProgramState, *models.SpecialProgram, error) {
	sched := p.d.Schedules.Get(game)
	switch {
	case sched.Disabled:
		return StateDisabled, nil, nil
	case sched.StreamTime == 0:
		return StateNoSchedule, nil, nil
	case !sched.Live(p.now()):
		return StateNotYetLive, nil, nil
	}

	prog, err := p.d.Programs.Get(ctx, game, sched.Version)
	if err != nil {
		return 0, nil, fmt.Errorf("load program %s %s: %w", game, sched.Version, err)
	}
	switch {
	case prog.Published:
		return StateDistributed, prog, nil
	case prog.Found:
		return StateFound, prog, nil
	}
	return StateSearching, prog, nil
}

// Poll asks HoYoLAB for the livestream codes of every game that is still
// searching, then refreshes the status boards. Incomplete answers are stored
// but leave the program unfound until a later poll sees every code.
func (p *Pipeline) Poll(ctx context.Context) error {
	p.cycle.Lock()
	defer p.cycle.Unlock()

	var errs []error
	for _, game := range models.Games {
		state, prog, err := p.DeriveState(ctx, game)
		if err == nil && state == StateSearching {
			err = p.pollGame(ctx, prog)
		}
		if err != nil {
			errs = append(errs, err)
			zerrors.Capture(err, sourceStream)
			p.d.Reporter.Report(operator.Report{
				Source:      sourceStream,
				Title:       "Error",
				Content:     "Error while polling " + string(game),
				Description: err.Error(),
				Level:       logger.LevelError,
			})
		}
	}

	for _, game := range models.Games {
		if err := p.updateBoard(ctx, game); err != nil {
			logger.Warn(fmt.Sprintf("Failed to update stream board of %s: %v", game, err), sourceStream)
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) pollGame(ctx context.Context, prog *models.SpecialProgram) error {
	game := prog.Game
	res, err := p.d.Stream.FetchStream(ctx, game)
	if err != nil {
		return err
	}
	if !res.Present {
		logger.Debug(fmt.Sprintf("No livestream module for %s", game), sourceStream)
		return nil
	}

	var added []string
	for _, sc := range res.Codes {
		c, isNew, err := p.applyStreamCode(ctx, prog, sc)
		if err != nil {
			return fmt.Errorf("store stream code %s (%s): %w", sc.Code, game, err)
		}
		if isNew {
			added = append(added, c.Code)
		}
	}

	if res.Image != "" && (prog.Image == nil || *prog.Image != res.Image) {
		if err := p.d.Programs.SetImage(ctx, prog, res.Image); err != nil {
			return fmt.Errorf("set program image: %w", err)
		}
	}
	if res.ExpireUnix != 0 && (prog.ExpireUnix == nil || *prog.ExpireUnix != res.ExpireUnix) {
		if err := p.d.Programs.SetExpiry(ctx, prog, res.ExpireUnix); err != nil {
			return fmt.Errorf("set program expiry: %w", err)
		}
	}

	if len(added) > 0 {
		p.d.Reporter.Report(operator.Report{
			Source:      sourceStream,
			Title:       "Stream Codes",
			Content:     fmt.Sprintf("Found %d of %d Codes for %s %s", len(res.Codes), res.CodeCount, game, prog.Version),
			Description: strings.Join(added, "\n"),
			Level:       logger.LevelInfo,
		})
	}

	if !res.Complete() {
		return nil
	}
	if err := p.d.Programs.MarkFound(ctx, prog); err != nil {
		return fmt.Errorf("mark program found: %w", err)
	}
	p.d.Reporter.Report(operator.Report{
		Source:  sourceStream,
		Title:   "Program Found",
		Content: fmt.Sprintf("All %d Codes of %s %s found, ready to publish", res.CodeCount, game, prog.Version),
		Level:   logger.LevelSuccess,
	})
	p.emit("program.found", map[string]interface{}{
		"game":    game,
		"version": prog.Version,
		"codes":   prog.Codes,
	})
	return nil
}

func (p *Pipeline) applyStreamCode(ctx context.Context, prog *models.SpecialProgram, sc sources.StreamCode) (*models.Code, bool, error) {
	c, err := p.d.Codes.GetOrCreate(ctx, prog.Game, sc.Code)
	if err != nil {
		return nil, false, err
	}
	if sc.ExpireUnix != 0 && (c.ExpireUnix == nil || *c.ExpireUnix != sc.ExpireUnix) {
		if err := p.d.Codes.SetExpiry(ctx, c, sc.ExpireUnix); err != nil {
			return nil, false, err
		}
	}
	if c.DiscoveredUnix == nil {
		if err := p.d.Codes.SetDiscovered(ctx, c, p.now().Unix()); err != nil {
			return nil, false, err
		}
	}
	if c.IsChina == nil {
		if err := p.d.Codes.SetRegion(ctx, c, false); err != nil {
			return nil, false, err
		}
	}
	if len(c.Rewards) == 0 {
		for _, r := range sc.Rewards {
			if _, err := p.d.Codes.MergeReward(ctx, c, r); err != nil {
				return nil, false, err
			}
		}
	}
	isNew, err := p.d.Programs.AddCode(ctx, prog, c)
	return c, isNew, err
}

func (p *Pipeline) updateBoard(ctx context.Context, game models.Game) error {
	if p.d.Board == nil {
		return nil
	}
	sched := p.d.Schedules.Get(game)
	if sched.Channel == "" || sched.Message == "" {
		return nil
	}
	state, _, err := p.DeriveState(ctx, game)
	if err != nil {
		return err
	}
	n, _, err := p.programNotification(ctx, game, sched.Version)
	if err != nil {
		return err
	}
	content := fmt.Sprintf("State `%d` `%s` Version `%s` Next Update <t:%d:R>",
		state, state, sched.Version, p.now().Unix()+pollInterval)
	return p.d.Board.EditStatus(sched.Channel, sched.Message, content, n.Render(models.DefaultLanguage).Embed, n.Thumbnail)
}

func (p *Pipeline) programNotification(ctx context.Context, game models.Game, version string) (*publisher.Notification, *models.SpecialProgram, error) {
	prog, err := p.d.Programs.Get(ctx, game, version)
	if err != nil {
		return nil, nil, err
	}
	members, err := p.d.Programs.Codes(ctx, prog)
	if err != nil {
		return nil, nil, err
	}
	return publisher.ProgramNotification(p.d.Translator, prog, members, p.thumbnail(game)), prog, nil
}

// PublishProgram announces a found program to every subscribed guild
func (p *Pipeline) PublishProgram(ctx context.Context, game models.Game, version string) (models.PublishStats, error) {
	p.cycle.Lock()
	defer p.cycle.Unlock()

	n, prog, err := p.programNotification(ctx, game, version)
	if err != nil {
		return models.PublishStats{}, err
	}
	if prog.Published {
		return models.PublishStats{}, fmt.Errorf("%w: %s %s", ErrProgramPublished, game, version)
	}
	if !prog.Found {
		return models.PublishStats{}, fmt.Errorf("%w: %s %s", ErrProgramNotFound, game, version)
	}

	recipients, err := p.d.Recipients.All(ctx)
	if err != nil {
		return models.PublishStats{}, fmt.Errorf("load guilds: %w", err)
	}
	stats := p.d.Fanout.Publish(ctx, n, recipients)

	if err := p.d.Programs.MarkPublished(ctx, prog); err != nil {
		err = fmt.Errorf("mark program %s %s published: %w", game, version, err)
		zerrors.Capture(err, sourceStream)
		return stats, err
	}

	runID := uuid.NewString()
	p.record(ctx, models.AnalyticsHoyolabCodes, models.PublishRecord{
		Type:    models.RecordPublish,
		Game:    game,
		Version: version,
		RunID:   runID,
		Time:    p.now(),
		Stats:   stats,
	})
	p.reportStats(sourceStream, "Published Program",
		fmt.Sprintf("Published %d Codes of %s %s", len(prog.Codes), game, version), stats)
	p.emit("program.published", map[string]interface{}{
		"game":    game,
		"version": version,
		"run_id":  runID,
		"stats":   stats,
	})
	return stats, nil
}

// PublishProgramToGuild delivers the program embed to one guild without
// marking anything, e.g. as a preview.
func (p *Pipeline) PublishProgramToGuild(ctx context.Context, game models.Game, version string, g *models.GuildConfig) (models.PublishStats, error) {
	n, _, err := p.programNotification(ctx, game, version)
	if err != nil {
		return models.PublishStats{}, err
	}
	return p.d.Fanout.Publish(ctx, n, []*models.GuildConfig{g}), nil
}
