package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/PancyStudios/ZenoxGo/pkg/logger"
	"github.com/PancyStudios/ZenoxGo/pkg/models"
	"github.com/spf13/viper"
)

// StreamSchedule is the livestream plan of one game.
// A zero StreamTime means no stream is scheduled.
type StreamSchedule struct {
	Channel    string `mapstructure:"channel"`
	Message    string `mapstructure:"message"`
	StreamTime int64  `mapstructure:"stream_time"`
	Version    string `mapstructure:"version"`
	Disabled   bool   `mapstructure:"disabled"`
}

// Live reports whether the scheduled stream has started at now
func (s StreamSchedule) Live(now time.Time) bool {
	return s.StreamTime != 0 && s.StreamTime <= now.Unix()
}

// StreamSchedules keeps the per-game schedules in a file that dev commands rewrite
type StreamSchedules struct {
	mu   sync.RWMutex
	v    *viper.Viper
	path string
}

// LoadStreamSchedules reads the schedule file, creating it when missing
func LoadStreamSchedules(path string) (*StreamSchedules, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	for _, game := range models.Games {
		key := scheduleKey(game)
		v.SetDefault(key+".channel", "")
		v.SetDefault(key+".message", "")
		v.SetDefault(key+".stream_time", 0)
		v.SetDefault(key+".version", "")
		v.SetDefault(key+".disabled", false)
	}

	s := &StreamSchedules{v: v, path: path}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := v.WriteConfigAs(path); err != nil {
			return nil, fmt.Errorf("creating stream schedule file: %w", err)
		}
		return s, nil
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading stream schedule file: %w", err)
	}
	return s, nil
}

func scheduleKey(game models.Game) string {
	return strings.ToLower(game.DatabaseKey())
}

// Lookup returns the schedule of a game and fails on a malformed entry
func (s *StreamSchedules) Lookup(game models.Game) (StreamSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sched StreamSchedule
	if err := s.v.UnmarshalKey(scheduleKey(game), &sched); err != nil {
		return StreamSchedule{}, fmt.Errorf("stream schedule of %s in %s: %w", game, s.path, err)
	}
	return sched, nil
}

// Get returns the schedule of a game. A malformed entry is logged and reads
// as no schedule.
func (s *StreamSchedules) Get(game models.Game) StreamSchedule {
	sched, err := s.Lookup(game)
	if err != nil {
		logger.Error(err.Error(), "Config")
	}
	return sched
}

// Update applies fn to the schedule of a game and persists the file
func (s *StreamSchedules) Update(game models.Game, fn func(*StreamSchedule)) (StreamSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := scheduleKey(game)
	var sched StreamSchedule
	if err := s.v.UnmarshalKey(key, &sched); err != nil {
		return sched, err
	}
	fn(&sched)

	s.v.Set(key+".channel", sched.Channel)
	s.v.Set(key+".message", sched.Message)
	s.v.Set(key+".stream_time", sched.StreamTime)
	s.v.Set(key+".version", sched.Version)
	s.v.Set(key+".disabled", sched.Disabled)

	if err := s.v.WriteConfigAs(s.path); err != nil {
		return sched, fmt.Errorf("writing stream schedule file: %w", err)
	}
	return sched, nil
}
