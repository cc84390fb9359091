package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

func TestStreamSchedulesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streams.toml")

	s, err := LoadStreamSchedules(path)
	if err != nil {
		t.Fatalf("LoadStreamSchedules() error = %v", err)
	}

	if got := s.Get(models.GameGenshin); got.StreamTime != 0 || got.Disabled {
		t.Errorf("default schedule = %+v, want zero", got)
	}

	_, err = s.Update(models.GameGenshin, func(sched *StreamSchedule) {
		sched.Version = "5.3"
		sched.StreamTime = 1734000000
		sched.Channel = "123456789"
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	reloaded, err := LoadStreamSchedules(path)
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}

	got := reloaded.Get(models.GameGenshin)
	if got.Version != "5.3" || got.StreamTime != 1734000000 || got.Channel != "123456789" {
		t.Errorf("reloaded schedule = %+v", got)
	}
	if other := reloaded.Get(models.GameZZZ); other.Version != "" {
		t.Errorf("ZZZ schedule should stay empty, got %+v", other)
	}
}

func TestStreamScheduleLive(t *testing.T) {
	now := time.Unix(1000, 0)
	tests := []struct {
		name  string
		sched StreamSchedule
		want  bool
	}{
		{"no schedule", StreamSchedule{}, false},
		{"future", StreamSchedule{StreamTime: 2000}, false},
		{"started", StreamSchedule{StreamTime: 999}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sched.Live(now); got != tt.want {
				t.Errorf("Live() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStreamScheduleMalformedEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streams.toml")
	body := "[" + scheduleKey(models.GameGenshin) + "]\nstream_time = \"soon\"\nversion = \"5.3\"\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadStreamSchedules(path)
	if err != nil {
		t.Fatalf("LoadStreamSchedules() error = %v", err)
	}
	if _, err := s.Lookup(models.GameGenshin); err == nil {
		t.Error("Lookup() accepted a non-numeric stream_time")
	}
	if got := s.Get(models.GameGenshin); got != (StreamSchedule{}) {
		t.Errorf("Get() = %+v, want zero schedule", got)
	}
	if _, err := s.Lookup(models.GameZZZ); err != nil {
		t.Errorf("Lookup(ZZZ) error = %v", err)
	}
}
