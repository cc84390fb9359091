// Package codes keeps the single in-process copy of every code and special
// program the pipeline touches. Reads go to the repository once; every
// mutation is written through before the cached copy is changed.
package codes

import (
	"context"
	"fmt"
	"sync"

	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

// Repository is the persistence the store writes through to
type Repository interface {
	FindCode(ctx context.Context, game models.Game, code string) (*models.Code, error)
	InsertCode(ctx context.Context, c *models.Code) error
	UpdateCodeField(ctx context.Context, game models.Game, code, field string, value interface{}) error
	AddCodeReward(ctx context.Context, game models.Game, code string, reward models.CodeReward) error
}

type key struct {
	game models.Game
	code string
}

// Store is the identity cache of codes keyed by (game, code)
type Store struct {
	repo Repository

	mu    sync.Mutex
	cache map[key]*models.Code
}

func NewStore(repo Repository) *Store {
	return &Store{
		repo:  repo,
		cache: make(map[key]*models.Code),
	}
}

// GetOrCreate returns the process-wide instance of a code. Unknown codes are
// inserted in their zero state and read back so the cached copy is exactly
// what the database holds.
func (s *Store) GetOrCreate(ctx context.Context, game models.Game, code string) (*models.Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{game, code}
	if c, ok := s.cache[k]; ok {
		return c, nil
	}

	c, err := s.repo.FindCode(ctx, game, code)
	if err != nil {
		return nil, err
	}
	if c == nil {
		if err := s.repo.InsertCode(ctx, models.NewCode(game, code)); err != nil {
			return nil, err
		}
		if c, err = s.repo.FindCode(ctx, game, code); err != nil {
			return nil, err
		}
		if c == nil {
			return nil, fmt.Errorf("code %s/%s missing after insert", game, code)
		}
	}
	if c.Rewards == nil {
		c.Rewards = []models.CodeReward{}
	}

	s.cache[k] = c
	return c, nil
}

// update writes one field and mirrors it only once the write succeeded
func (s *Store) update(ctx context.Context, c *models.Code, field string, value interface{}, apply func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.UpdateCodeField(ctx, c.Game, c.Code, field, value); err != nil {
		return err
	}
	apply()
	return nil
}

func (s *Store) SetDiscovered(ctx context.Context, c *models.Code, unix int64) error {
	return s.update(ctx, c, models.CodeFieldDiscovered, unix, func() { c.DiscoveredUnix = &unix })
}

func (s *Store) SetExpiry(ctx context.Context, c *models.Code, unix int64) error {
	return s.update(ctx, c, models.CodeFieldExpire, unix, func() { c.ExpireUnix = &unix })
}

func (s *Store) SetRegion(ctx context.Context, c *models.Code, china bool) error {
	return s.update(ctx, c, models.CodeFieldIsChina, china, func() { c.IsChina = &china })
}

func (s *Store) SetPublished(ctx context.Context, c *models.Code, published bool) error {
	return s.update(ctx, c, models.CodeFieldPublished, published, func() { c.Published = published })
}

func (s *Store) SetRedeemed(ctx context.Context, c *models.Code, redeemed bool) error {
	return s.update(ctx, c, models.CodeFieldRedeemed, redeemed, func() { c.Redeemed = &redeemed })
}

// MergeReward attaches a reward unless one with the same name is present.
// It reports whether the reward was added.
func (s *Store) MergeReward(ctx context.Context, c *models.Code, reward models.CodeReward) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.HasReward(reward.Reward) {
		return false, nil
	}
	if err := s.repo.AddCodeReward(ctx, c.Game, c.Code, reward); err != nil {
		return false, err
	}
	c.Rewards = append(c.Rewards, reward)
	return true, nil
}

// MergeRewards sums rewards of several codes by name, keeping first-seen order
func MergeRewards(codes ...*models.Code) []models.CodeReward {
	var out []models.CodeReward
	index := make(map[string]int)
	for _, c := range codes {
		for _, r := range c.Rewards {
			if i, ok := index[r.Reward]; ok {
				out[i].Amount += r.Amount
				continue
			}
			index[r.Reward] = len(out)
			out = append(out, r)
		}
	}
	return out
}
