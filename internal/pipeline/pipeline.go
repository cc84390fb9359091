// Package pipeline discovers promotional codes, validates them by redeeming
// them and publishes the survivors to every subscribed guild.
//
// Codes found on the wiki are queued per game as groups (all aliases of one
// table row). A later publish cycle redeems the head groups in order, drops
// the ones that are claimed or invalid, and announces the rest. Any failure
// the pipeline cannot classify halts it until an operator resumes it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/ZenoxGo/internal/codes"
	"github.com/PancyStudios/ZenoxGo/internal/operator"
	"github.com/PancyStudios/ZenoxGo/internal/publisher"
	"github.com/PancyStudios/ZenoxGo/internal/redeem"
	"github.com/PancyStudios/ZenoxGo/internal/sources"
	"github.com/PancyStudios/ZenoxGo/pkg/config"
	zerrors "github.com/PancyStudios/ZenoxGo/pkg/errors"
	"github.com/PancyStudios/ZenoxGo/pkg/logger"
	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

// DefaultLimit is how many groups per game one publish cycle validates
const DefaultLimit = 4

// ErrHalted is returned by cycles started while the pipeline is halted
var ErrHalted = errors.New("pipeline halted")

type WikiSource interface {
	FetchWiki(ctx context.Context, game models.Game) ([]sources.WikiRow, error)
}

type StreamSource interface {
	FetchStream(ctx context.Context, game models.Game) (*sources.StreamCodes, error)
}

type Redeemer interface {
	Redeem(ctx context.Context, game models.Game, code string) (redeem.Result, error)
}

type Fanout interface {
	Publish(ctx context.Context, n *publisher.Notification, recipients []*models.GuildConfig) models.PublishStats
}

// Recipients lists the guilds a notification goes to
type Recipients interface {
	All(ctx context.Context) ([]*models.GuildConfig, error)
}

type AnalyticsSink interface {
	InsertPublishRecord(ctx context.Context, collection string, rec models.PublishRecord) error
}

type Schedules interface {
	Get(game models.Game) config.StreamSchedule
}

type Assets interface {
	Thumbnail(game models.Game) []byte
}

// EventSink receives pipeline events for external consumers
type EventSink interface {
	PublishEvent(event string, payload interface{}) error
}

// StatusBoard edits the stream status message of a game
type StatusBoard interface {
	EditStatus(channelID, messageID, content string, embed *discordgo.MessageEmbed, thumbnail []byte) error
}

// Deps are the collaborators of a Pipeline. Events and Board are optional.
type Deps struct {
	Codes      *codes.Store
	Programs   *codes.Programs
	Wiki       WikiSource
	Stream     StreamSource
	Redeemer   Redeemer
	Fanout     Fanout
	Recipients Recipients
	Analytics  AnalyticsSink
	Reporter   operator.Reporter
	Schedules  Schedules
	Translator publisher.Translator
	Assets     Assets
	Events     EventSink
	Board      StatusBoard
	Limit      int
}

// RunState is whether cycles may run
type RunState int

const (
	Running RunState = iota
	Halted
)

func (s RunState) String() string {
	if s == Halted {
		return "halted"
	}
	return "running"
}

// Group is the set of aliases of one wiki row, redeemed as one unit
type Group []*models.Code

// Lead is the code that identifies and gets redeemed for the group
func (g Group) Lead() *models.Code {
	return g[0]
}

// Pipeline owns the per-game queues and the run state
type Pipeline struct {
	d   Deps
	now func() time.Time

	// cycle serializes discover, publish and poll runs
	cycle sync.Mutex

	mu       sync.Mutex
	queues   map[models.Game][]Group
	state    RunState
	reason   string
	haltedAt time.Time
}

func New(d Deps) *Pipeline {
	if d.Limit <= 0 {
		d.Limit = DefaultLimit
	}
	q := make(map[models.Game][]Group, len(models.Games))
	for _, g := range models.Games {
		q[g] = nil
	}
	return &Pipeline{d: d, now: time.Now, queues: q}
}

// State returns the run state and the halt reason
func (p *Pipeline) State() (RunState, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, p.reason
}

// StateName is the run state as shown on status surfaces
func (p *Pipeline) StateName() string {
	s, _ := p.State()
	return s.String()
}

func (p *Pipeline) checkRunning() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Halted {
		return fmt.Errorf("%w: %s", ErrHalted, p.reason)
	}
	return nil
}

// halt stops the pipeline, alerts the operator and captures cause
func (p *Pipeline) halt(source string, cause error) {
	p.mu.Lock()
	p.state = Halted
	p.reason = cause.Error()
	p.haltedAt = p.now()
	p.mu.Unlock()

	zerrors.Capture(cause, source)
	p.d.Reporter.Report(operator.Report{
		Source:      source,
		Title:       "Pipeline halted",
		Content:     "Code pipeline stopped, resume it after checking the cause",
		Description: cause.Error(),
		Level:       logger.LevelCritical,
	})
	p.emit("pipeline.halted", map[string]interface{}{"reason": cause.Error()})
}

// Resume clears a halt. It reports whether the pipeline was halted.
func (p *Pipeline) Resume() bool {
	p.mu.Lock()
	was := p.state == Halted
	p.state = Running
	p.reason = ""
	p.haltedAt = time.Time{}
	p.mu.Unlock()

	if was {
		logger.Success("Pipeline resumed", "Pipeline")
		p.emit("pipeline.resumed", nil)
	}
	return was
}

// QueuedGroup is the read-only view of a queued group
type QueuedGroup struct {
	Lead    string              `json:"lead"`
	Codes   []string            `json:"codes"`
	Rewards []models.CodeReward `json:"rewards"`
}

// Status is a snapshot for status surfaces
type Status struct {
	State    string                        `json:"state"`
	Reason   string                        `json:"reason,omitempty"`
	HaltedAt *time.Time                    `json:"halted_at,omitempty"`
	Limit    int                           `json:"limit"`
	Queues   map[models.Game][]QueuedGroup `json:"queues"`
}

func (p *Pipeline) Snapshot() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := Status{
		State:  p.state.String(),
		Reason: p.reason,
		Limit:  p.d.Limit,
		Queues: make(map[models.Game][]QueuedGroup, len(p.queues)),
	}
	if p.state == Halted {
		t := p.haltedAt
		st.HaltedAt = &t
	}
	for game, groups := range p.queues {
		views := make([]QueuedGroup, 0, len(groups))
		for _, g := range groups {
			v := QueuedGroup{Lead: g.Lead().Code}
			for _, c := range g {
				v.Codes = append(v.Codes, c.Code)
			}
			v.Rewards = append(v.Rewards, g.Lead().Rewards...)
			views = append(views, v)
		}
		st.Queues[game] = views
	}
	return st
}

// QueueLen returns the number of queued groups of a game
func (p *Pipeline) QueueLen(game models.Game) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queues[game])
}

// queued reports whether a group led by code is already queued
func (p *Pipeline) queued(game models.Game, code string) bool {
	for _, g := range p.queues[game] {
		if g.Lead().Code == code {
			return true
		}
	}
	return false
}

func (p *Pipeline) enqueue(game models.Game, g Group) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.queued(game, g.Lead().Code) {
		return false
	}
	p.queues[game] = append(p.queues[game], g)
	return true
}

// heads copies up to n groups from the front of a queue
func (p *Pipeline) heads(game models.Game, n int) []Group {
	p.mu.Lock()
	defer p.mu.Unlock()
	q := p.queues[game]
	if len(q) < n {
		n = len(q)
	}
	return append([]Group(nil), q[:n]...)
}

// remove drops the group led by code wherever it is
func (p *Pipeline) remove(game models.Game, code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q := p.queues[game]
	for i, g := range q {
		if g.Lead().Code == code {
			p.queues[game] = append(q[:i:i], q[i+1:]...)
			return
		}
	}
}

// popHead removes the first group, which has to be led by code
func (p *Pipeline) popHead(game models.Game, code string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	q := p.queues[game]
	if len(q) == 0 {
		return fmt.Errorf("queue of %s is empty, expected %s at the head", game, code)
	}
	if head := q[0].Lead().Code; head != code {
		return fmt.Errorf("queue head of %s is %s, expected %s", game, head, code)
	}
	p.queues[game] = q[1:]
	return nil
}

func (p *Pipeline) emit(event string, payload interface{}) {
	if p.d.Events == nil {
		return
	}
	if err := p.d.Events.PublishEvent(event, payload); err != nil {
		logger.Warn(fmt.Sprintf("Failed to publish event %s: %v", event, err), "Pipeline")
	}
}

func (p *Pipeline) thumbnail(game models.Game) []byte {
	if p.d.Assets == nil {
		return nil
	}
	return p.d.Assets.Thumbnail(game)
}
