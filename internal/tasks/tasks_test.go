package tasks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/PancyStudios/ZenoxGo/internal/operator"
	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

type fakeGateway []GuildInfo

func (f fakeGateway) Guilds() []GuildInfo { return f }

type fakeGuilds struct {
	stored  map[string]*models.GuildConfig
	deleted []string
	counts  map[string]int
	failID  string
}

func newFakeGuilds(guilds ...*models.GuildConfig) *fakeGuilds {
	f := &fakeGuilds{stored: map[string]*models.GuildConfig{}, counts: map[string]int{}}
	for _, g := range guilds {
		f.stored[g.ID] = g
	}
	return f
}

func (f *fakeGuilds) All(ctx context.Context) ([]*models.GuildConfig, error) {
	var out []*models.GuildConfig
	for _, g := range f.stored {
		out = append(out, g)
	}
	return out, nil
}

func (f *fakeGuilds) GetOrCreate(ctx context.Context, id string) (*models.GuildConfig, error) {
	if g, ok := f.stored[id]; ok {
		return g, nil
	}
	g := models.NewGuildConfig(id)
	f.stored[id] = g
	return g, nil
}

func (f *fakeGuilds) SetPendingDeletion(ctx context.Context, id string, pending bool) error {
	if id == f.failID {
		return errors.New("write failed")
	}
	f.stored[id].PendingDeletion = pending
	return nil
}

func (f *fakeGuilds) SetMemberCount(ctx context.Context, id string, count int) error {
	if id == f.failID {
		return errors.New("write failed")
	}
	f.counts[id] = count
	return nil
}

func (f *fakeGuilds) Delete(ctx context.Context, id string) error {
	delete(f.stored, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeReporter struct {
	reports []operator.Report
}

func (f *fakeReporter) Report(r operator.Report) { f.reports = append(f.reports, r) }

type fakeEvents struct {
	events   []string
	payloads []interface{}
}

func (f *fakeEvents) PublishEvent(event string, payload interface{}) error {
	f.events = append(f.events, event)
	f.payloads = append(f.payloads, payload)
	return nil
}

func pending(id string) *models.GuildConfig {
	g := models.NewGuildConfig(id)
	g.PendingDeletion = true
	return g
}

func TestCleanDB(t *testing.T) {
	guilds := newFakeGuilds(
		models.NewGuildConfig("joined"),
		pending("back"),
		models.NewGuildConfig("left"),
		pending("gone"),
		models.NewGuildConfig("broken"),
	)
	guilds.failID = "broken"
	gateway := fakeGateway{{ID: "joined"}, {ID: "back"}, {ID: "new"}}
	reporter := &fakeReporter{}

	if err := NewCleanDB(guilds, gateway, reporter).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	tests := []struct {
		id          string
		wantStored  bool
		wantPending bool
	}{
		{"joined", true, false},
		{"back", true, false},
		{"left", true, true},
		{"gone", false, false},
		{"new", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			g, ok := guilds.stored[tt.id]
			if ok != tt.wantStored {
				t.Fatalf("stored = %v, want %v", ok, tt.wantStored)
			}
			if ok && g.PendingDeletion != tt.wantPending {
				t.Errorf("pending_deletion = %v, want %v", g.PendingDeletion, tt.wantPending)
			}
		})
	}

	if len(reporter.reports) != 1 {
		t.Fatalf("reports = %d", len(reporter.reports))
	}
	want := "Guilds\n```\n1 Skipped\n1 Restored\n1 Pending\n1 Deleted\n1 Created\n1 Error\n```"
	if got := reporter.reports[0].Description; len(got) < len(want) || got[:len(want)] != want {
		t.Errorf("description = %q", got)
	}
}

func TestClientStats(t *testing.T) {
	guilds := newFakeGuilds()
	events := &fakeEvents{}
	gateway := fakeGateway{{ID: "a", MemberCount: 10}, {ID: "b", MemberCount: 32}}

	err := NewClientStats(guilds, gateway, &fakeReporter{}, events).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if guilds.counts["a"] != 10 || guilds.counts["b"] != 32 {
		t.Errorf("counts = %v", guilds.counts)
	}
	if len(events.events) != 1 || events.events[0] != "stats" {
		t.Fatalf("events = %v", events.events)
	}
	snap := events.payloads[0].(Snapshot)
	if snap.Guilds != 2 || snap.Users != 42 {
		t.Errorf("snapshot = %+v", snap)
	}

	guilds.failID = "b"
	if err := NewClientStats(guilds, gateway, &fakeReporter{}, nil).Run(context.Background()); err == nil {
		t.Error("Run() hid a failed write")
	}
}

func TestTopGG(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		wantErr     bool
		wantContent string
	}{
		{"updated", http.StatusOK, false, "Updated Guild Count on TopGG to 2"},
		{"rejected", http.StatusUnauthorized, true, "Failed to update Guild Count on TopGG"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got struct {
				ServerCount int `json:"server_count"`
			}
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/bots/42/stats" {
					t.Errorf("request = %s %s", r.Method, r.URL.Path)
				}
				if r.Header.Get("Authorization") != "Bearer tok" {
					t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
				}
				if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
					t.Errorf("decode body: %v", err)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			reporter := &fakeReporter{}
			task := NewTopGG(fakeGateway{{ID: "a"}, {ID: "b"}}, reporter, "42", "tok")
			task.baseURL = srv.URL

			if err := task.Run(context.Background()); (err != nil) != tt.wantErr {
				t.Fatalf("Run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got.ServerCount != 2 {
				t.Errorf("server_count = %d", got.ServerCount)
			}
			if len(reporter.reports) != 1 || reporter.reports[0].Content != tt.wantContent {
				t.Errorf("reports = %+v", reporter.reports)
			}
		})
	}
}
