package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

type fakeDB struct{}

func (fakeDB) GetStatus() (string, bool) { return "Connected", true }

type fakePipeline string

func (f fakePipeline) StateName() string { return string(f) }

func TestStatusText(t *testing.T) {
	tests := []struct {
		name string
		d    Deps
		want []string
	}{
		{"offline", Deps{}, []string{"Database: Disconnected", "Code pipeline: offline", "Guilds: 3"}},
		{"online", Deps{DB: fakeDB{}, Pipeline: fakePipeline("halted")}, []string{"Database: Connected", "Code pipeline: halted"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := statusText(tt.d, 3)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("statusText() = %q, missing %q", got, w)
				}
			}
		})
	}
}

func TestHelpTextListsGames(t *testing.T) {
	text := helpText()
	for _, g := range models.Games {
		if !strings.Contains(text, string(g)) {
			t.Errorf("help text is missing %s", g)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0 seconds"},
		{90 * time.Second, "1 minutes, 30 seconds"},
		{26*time.Hour + 5*time.Second, "1 days, 2 hours, 5 seconds"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
