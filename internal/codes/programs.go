package codes

import (
	"context"
	"fmt"
	"sync"

	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

// ProgramRepository persists special programs
type ProgramRepository interface {
	FindProgram(ctx context.Context, game models.Game, version string) (*models.SpecialProgram, error)
	InsertProgram(ctx context.Context, p *models.SpecialProgram) error
	UpdateProgramField(ctx context.Context, game models.Game, version, field string, value interface{}) error
	PushProgramCode(ctx context.Context, game models.Game, version, code string) error
}

type programKey struct {
	game    models.Game
	version string
}

// Programs is the identity cache of special programs keyed by (game, version)
type Programs struct {
	repo  ProgramRepository
	codes *Store

	mu    sync.Mutex
	cache map[programKey]*models.SpecialProgram
}

func NewPrograms(repo ProgramRepository, codes *Store) *Programs {
	return &Programs{
		repo:  repo,
		codes: codes,
		cache: make(map[programKey]*models.SpecialProgram),
	}
}

// Get returns the program of a stream version, creating it on first use
func (p *Programs) Get(ctx context.Context, game models.Game, version string) (*models.SpecialProgram, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	k := programKey{game, version}
	if prog, ok := p.cache[k]; ok {
		return prog, nil
	}

	prog, err := p.repo.FindProgram(ctx, game, version)
	if err != nil {
		return nil, err
	}
	if prog == nil {
		if err := p.repo.InsertProgram(ctx, models.NewSpecialProgram(game, version)); err != nil {
			return nil, err
		}
		if prog, err = p.repo.FindProgram(ctx, game, version); err != nil {
			return nil, err
		}
		if prog == nil {
			return nil, fmt.Errorf("program %s/%s missing after insert", game, version)
		}
	}

	p.cache[k] = prog
	return prog, nil
}

func (p *Programs) update(ctx context.Context, prog *models.SpecialProgram, field string, value interface{}, apply func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.repo.UpdateProgramField(ctx, prog.Game, prog.Version, field, value); err != nil {
		return err
	}
	apply()
	return nil
}

// AddCode records a member code once. It reports whether the code was new.
func (p *Programs) AddCode(ctx context.Context, prog *models.SpecialProgram, code *models.Code) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prog.HasCode(code.Code) {
		return false, nil
	}
	if err := p.repo.PushProgramCode(ctx, prog.Game, prog.Version, code.Code); err != nil {
		return false, err
	}
	prog.Codes = append(prog.Codes, code.Code)
	return true, nil
}

func (p *Programs) MarkFound(ctx context.Context, prog *models.SpecialProgram) error {
	return p.update(ctx, prog, models.ProgramFieldFound, true, func() { prog.Found = true })
}

// MarkPublished flags the program and every member code as published
func (p *Programs) MarkPublished(ctx context.Context, prog *models.SpecialProgram) error {
	if err := p.update(ctx, prog, models.ProgramFieldPublished, true, func() { prog.Published = true }); err != nil {
		return err
	}
	members, err := p.Codes(ctx, prog)
	if err != nil {
		return err
	}
	for _, c := range members {
		if err := p.codes.SetPublished(ctx, c, true); err != nil {
			return err
		}
	}
	return nil
}

func (p *Programs) SetImage(ctx context.Context, prog *models.SpecialProgram, url string) error {
	return p.update(ctx, prog, models.ProgramFieldImage, url, func() { prog.Image = &url })
}

func (p *Programs) SetExpiry(ctx context.Context, prog *models.SpecialProgram, unix int64) error {
	return p.update(ctx, prog, models.ProgramFieldExpire, unix, func() { prog.ExpireUnix = &unix })
}

// Codes resolves the member codes through the code identity cache
func (p *Programs) Codes(ctx context.Context, prog *models.SpecialProgram) ([]*models.Code, error) {
	p.mu.Lock()
	names := append([]string(nil), prog.Codes...)
	p.mu.Unlock()

	out := make([]*models.Code, 0, len(names))
	for _, name := range names {
		c, err := p.codes.GetOrCreate(ctx, prog.Game, name)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
