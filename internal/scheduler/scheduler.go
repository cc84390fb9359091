// Package scheduler runs the periodic jobs of the bot on gocron.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/PancyStudios/ZenoxGo/internal/pipeline"
	zerrors "github.com/PancyStudios/ZenoxGo/pkg/errors"
	"github.com/PancyStudios/ZenoxGo/pkg/logger"
)

// Location is the zone the daily times are given in
var Location = time.FixedZone("UTC+8", 8*60*60)

// Runner is one unit of periodic work
type Runner func(ctx context.Context) error

// Job binds a runner to its schedule
type Job struct {
	Name       string
	Definition gocron.JobDefinition
	Run        Runner
}

// Pipeline is what the code jobs need from the pipeline
type Pipeline interface {
	Discover(ctx context.Context) error
	CheckPublish(ctx context.Context) error
	Poll(ctx context.Context) error
}

func daily(times ...gocron.AtTime) gocron.JobDefinition {
	return gocron.DailyJob(1, gocron.NewAtTimes(times[0], times[1:]...))
}

// Jobs returns the standard job set. cleanDB, stats and topGG may be nil.
func Jobs(p Pipeline, cleanDB, stats, topGG Runner) []Job {
	jobs := []Job{
		{
			Name:       "wiki-discover",
			Definition: daily(gocron.NewAtTime(1, 0, 0), gocron.NewAtTime(13, 0, 0)),
			Run:        p.Discover,
		},
		{
			Name:       "wiki-publish",
			Definition: daily(gocron.NewAtTime(3, 0, 0), gocron.NewAtTime(15, 0, 0)),
			Run:        p.CheckPublish,
		},
		{
			Name:       "hoyolab-poll",
			Definition: gocron.DurationJob(3 * time.Minute),
			Run:        p.Poll,
		},
	}
	if cleanDB != nil {
		jobs = append(jobs, Job{
			Name:       "clean-db",
			Definition: daily(gocron.NewAtTime(0, 0, 0)),
			Run:        cleanDB,
		})
	}
	if stats != nil {
		jobs = append(jobs, Job{
			Name:       "client-stats",
			Definition: gocron.DurationJob(10 * time.Minute),
			Run:        stats,
		})
	}
	if topGG != nil {
		jobs = append(jobs, Job{
			Name:       "topgg",
			Definition: daily(gocron.NewAtTime(0, 0, 0)),
			Run:        topGG,
		})
	}
	return jobs
}

// Scheduler owns the gocron scheduler and the context handed to jobs
type Scheduler struct {
	s      gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
}

// New registers jobs on a scheduler in singleton mode; a job that is still
// running when it fires again skips that run.
func New(jobs []Job) (*Scheduler, error) {
	s, err := gocron.NewScheduler(
		gocron.WithLocation(Location),
		gocron.WithGlobalJobOptions(gocron.WithSingletonMode(gocron.LimitModeReschedule)),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sc := &Scheduler{s: s, ctx: ctx, cancel: cancel}
	for _, j := range jobs {
		if _, err := s.NewJob(j.Definition, gocron.NewTask(sc.wrap(j)), gocron.WithName(j.Name)); err != nil {
			cancel()
			_ = s.Shutdown()
			return nil, fmt.Errorf("register job %s: %w", j.Name, err)
		}
	}
	return sc, nil
}

func (sc *Scheduler) wrap(j Job) func() {
	return func() {
		defer zerrors.RecoverMiddleware()()

		start := time.Now()
		logger.Debug(fmt.Sprintf("Running %s", j.Name), "Scheduler")
		err := j.Run(sc.ctx)
		switch {
		case errors.Is(err, pipeline.ErrHalted):
			logger.Warn(fmt.Sprintf("Skipped %s: %v", j.Name, err), "Scheduler")
		case err != nil && sc.ctx.Err() == nil:
			logger.Error(fmt.Sprintf("%s failed after %s: %v", j.Name, time.Since(start).Round(time.Millisecond), err), "Scheduler")
		default:
			logger.Debug(fmt.Sprintf("%s finished in %s", j.Name, time.Since(start).Round(time.Millisecond)), "Scheduler")
		}
	}
}

// Names lists the registered jobs
func (sc *Scheduler) Names() []string {
	var names []string
	for _, j := range sc.s.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

func (sc *Scheduler) Start() {
	sc.s.Start()
	logger.System(fmt.Sprintf("Scheduler started with %d jobs", len(sc.s.Jobs())), "Scheduler")
}

// Stop cancels running jobs and waits for them to return
func (sc *Scheduler) Stop() error {
	sc.cancel()
	return sc.s.Shutdown()
}
