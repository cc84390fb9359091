// Package codestest provides an in-memory repository for tests of packages
// built on the code store.
package codestest

import (
	"context"
	"fmt"
	"sync"

	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

// Write is one recorded mutation
type Write struct {
	Game  models.Game
	Key   string // code or program version
	Field string
	Value interface{}
}

// Memory implements codes.Repository and codes.ProgramRepository
type Memory struct {
	mu       sync.Mutex
	codes    map[string]*models.Code
	programs map[string]*models.SpecialProgram

	Writes []Write
	Finds  int

	// FailField makes updates of that field fail
	FailField string
}

func NewMemory() *Memory {
	return &Memory{
		codes:    make(map[string]*models.Code),
		programs: make(map[string]*models.SpecialProgram),
	}
}

func id(game models.Game, s string) string {
	return string(game) + "/" + s
}

// Seed stores a code document as if it already existed
func (m *Memory) Seed(c *models.Code) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.codes[id(c.Game, c.Code)] = &cp
}

// Stored returns a copy of the persisted code document
func (m *Memory) Stored(game models.Game, code string) (models.Code, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[id(game, code)]
	if !ok {
		return models.Code{}, false
	}
	cp := *c
	cp.Rewards = append([]models.CodeReward(nil), c.Rewards...)
	return cp, true
}

// StoredProgram returns a copy of the persisted program document
func (m *Memory) StoredProgram(game models.Game, version string) (models.SpecialProgram, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.programs[id(game, version)]
	if !ok {
		return models.SpecialProgram{}, false
	}
	cp := *p
	cp.Codes = append([]string(nil), p.Codes...)
	return cp, true
}

// WritesOf counts recorded writes of a field
func (m *Memory) WritesOf(field string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, w := range m.Writes {
		if w.Field == field {
			n++
		}
	}
	return n
}

func (m *Memory) FindCode(ctx context.Context, game models.Game, code string) (*models.Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Finds++
	c, ok := m.codes[id(game, code)]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Rewards = append([]models.CodeReward{}, c.Rewards...)
	return &cp, nil
}

func (m *Memory) InsertCode(ctx context.Context, c *models.Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.codes[id(c.Game, c.Code)]; ok {
		return fmt.Errorf("duplicate code %s", c.Code)
	}
	cp := *c
	m.codes[id(c.Game, c.Code)] = &cp
	return nil
}

func (m *Memory) UpdateCodeField(ctx context.Context, game models.Game, code, field string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if field == m.FailField {
		return fmt.Errorf("write %s failed", field)
	}
	c, ok := m.codes[id(game, code)]
	if !ok {
		return fmt.Errorf("code %s not found", code)
	}
	switch field {
	case models.CodeFieldDiscovered:
		v := value.(int64)
		c.DiscoveredUnix = &v
	case models.CodeFieldExpire:
		v := value.(int64)
		c.ExpireUnix = &v
	case models.CodeFieldIsChina:
		v := value.(bool)
		c.IsChina = &v
	case models.CodeFieldPublished:
		c.Published = value.(bool)
	case models.CodeFieldRedeemed:
		v := value.(bool)
		c.Redeemed = &v
	default:
		return fmt.Errorf("unknown field %s", field)
	}
	m.Writes = append(m.Writes, Write{game, code, field, value})
	return nil
}

func (m *Memory) AddCodeReward(ctx context.Context, game models.Game, code string, reward models.CodeReward) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[id(game, code)]
	if !ok {
		return fmt.Errorf("code %s not found", code)
	}
	for _, r := range c.Rewards {
		if r == reward {
			return nil
		}
	}
	c.Rewards = append(c.Rewards, reward)
	m.Writes = append(m.Writes, Write{game, code, models.CodeFieldRewards, reward})
	return nil
}

func (m *Memory) FindProgram(ctx context.Context, game models.Game, version string) (*models.SpecialProgram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.programs[id(game, version)]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.Codes = append([]string{}, p.Codes...)
	return &cp, nil
}

func (m *Memory) InsertProgram(ctx context.Context, p *models.SpecialProgram) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.programs[id(p.Game, p.Version)] = &cp
	return nil
}

func (m *Memory) UpdateProgramField(ctx context.Context, game models.Game, version, field string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if field == m.FailField {
		return fmt.Errorf("write %s failed", field)
	}
	p, ok := m.programs[id(game, version)]
	if !ok {
		return fmt.Errorf("program %s not found", version)
	}
	switch field {
	case models.ProgramFieldFound:
		p.Found = value.(bool)
	case models.ProgramFieldPublished:
		p.Published = value.(bool)
	case models.ProgramFieldImage:
		v := value.(string)
		p.Image = &v
	case models.ProgramFieldExpire:
		v := value.(int64)
		p.ExpireUnix = &v
	default:
		return fmt.Errorf("unknown field %s", field)
	}
	m.Writes = append(m.Writes, Write{game, version, "program." + field, value})
	return nil
}

func (m *Memory) PushProgramCode(ctx context.Context, game models.Game, version, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.programs[id(game, version)]
	if !ok {
		return fmt.Errorf("program %s not found", version)
	}
	p.Codes = append(p.Codes, code)
	m.Writes = append(m.Writes, Write{game, version, "program." + models.ProgramFieldCodes, code})
	return nil
}
