package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PancyStudios/ZenoxGo/internal/sources"
	"github.com/PancyStudios/ZenoxGo/pkg/config"
	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

func TestDeriveState(t *testing.T) {
	live := testNow.Unix() - 60
	tests := []struct {
		name      string
		sched     config.StreamSchedule
		found     bool
		published bool
		want      ProgramState
	}{
		{"disabled wins", config.StreamSchedule{Disabled: true, StreamTime: live, Version: "5.0"}, true, true, StateDisabled},
		{"no schedule", config.StreamSchedule{Version: "5.0"}, false, false, StateNoSchedule},
		{"not yet live", config.StreamSchedule{StreamTime: testNow.Unix() + 60, Version: "5.0"}, false, false, StateNotYetLive},
		{"distributed", config.StreamSchedule{StreamTime: live, Version: "5.0"}, true, true, StateDistributed},
		{"found", config.StreamSchedule{StreamTime: live, Version: "5.0"}, true, false, StateFound},
		{"searching", config.StreamSchedule{StreamTime: live, Version: "5.0"}, false, false, StateSearching},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(0)
			h.schedules[models.GameGenshin] = tt.sched
			ctx := context.Background()

			prog, err := h.programs.Get(ctx, models.GameGenshin, "5.0")
			if err != nil {
				t.Fatal(err)
			}
			if tt.found {
				_ = h.programs.MarkFound(ctx, prog)
			}
			if tt.published {
				_ = h.programs.MarkPublished(ctx, prog)
			}

			got, _, err := h.p.DeriveState(ctx, models.GameGenshin)
			if err != nil {
				t.Fatalf("DeriveState() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DeriveState() = %v, want %v", got, tt.want)
			}
		})
	}
}

func streamCodes(count int, names ...string) *sources.StreamCodes {
	res := &sources.StreamCodes{
		Present:    true,
		CodeCount:  count,
		Image:      "https://example.com/stream.png",
		ExpireUnix: testNow.Unix() + 86400,
	}
	for _, n := range names {
		res.Codes = append(res.Codes, sources.StreamCode{
			Code:       n,
			ExpireUnix: testNow.Unix() + 86400,
			Rewards:    []models.CodeReward{{Reward: "Primogem", Amount: 100}},
		})
	}
	return res
}

func TestPollIncompleteDoesNotMarkFound(t *testing.T) {
	h := newHarness(0)
	board := &fakeBoard{}
	h.p.d.Board = board
	h.schedules[models.GameGenshin] = config.StreamSchedule{
		Channel: "10", Message: "20", StreamTime: testNow.Unix() - 60, Version: "5.0",
	}
	h.stream.res[models.GameGenshin] = streamCodes(3, "LIVE1", "LIVE2")
	ctx := context.Background()

	if err := h.p.Poll(ctx); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if h.stream.calls != 1 {
		t.Errorf("polled %d games, only Genshin is searching", h.stream.calls)
	}

	for _, field := range []string{"program." + models.ProgramFieldFound, "program." + models.ProgramFieldPublished, models.CodeFieldPublished} {
		if n := h.repo.WritesOf(field); n != 0 {
			t.Errorf("%d writes of %s after an incomplete poll", n, field)
		}
	}
	prog, _ := h.repo.StoredProgram(models.GameGenshin, "5.0")
	if len(prog.Codes) != 2 || prog.Image == nil || prog.ExpireUnix == nil {
		t.Errorf("program = %+v", prog)
	}
	live1, _ := h.repo.Stored(models.GameGenshin, "LIVE1")
	if live1.IsChina == nil || live1.China() || live1.ExpireUnix == nil || len(live1.Rewards) != 1 {
		t.Errorf("LIVE1 = %+v", live1)
	}

	if len(board.contents) != 1 || !strings.HasPrefix(board.contents[0], "State `4` `Searching` Version `5.0`") {
		t.Errorf("board = %v", board.contents)
	}

	// the third code shows up on the next poll
	h.stream.res[models.GameGenshin] = streamCodes(3, "LIVE1", "LIVE2", "LIVE3")
	if err := h.p.Poll(ctx); err != nil {
		t.Fatal(err)
	}
	prog, _ = h.repo.StoredProgram(models.GameGenshin, "5.0")
	if !prog.Found || prog.Published || len(prog.Codes) != 3 {
		t.Errorf("program after complete poll = %+v", prog)
	}
	if n := h.repo.WritesOf("program." + models.ProgramFieldCodes); n != 3 {
		t.Errorf("code pushes = %d, want 3", n)
	}

	// found programs are not polled again
	if err := h.p.Poll(ctx); err != nil {
		t.Fatal(err)
	}
	if h.stream.calls != 2 {
		t.Errorf("stream calls = %d, want 2", h.stream.calls)
	}
}

func TestPollWithoutModule(t *testing.T) {
	h := newHarness(0)
	h.schedules[models.GameZZZ] = config.StreamSchedule{StreamTime: testNow.Unix() - 60, Version: "2.0"}

	if err := h.p.Poll(context.Background()); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	prog, _ := h.repo.StoredProgram(models.GameZZZ, "2.0")
	if prog.Found || len(prog.Codes) != 0 {
		t.Errorf("program = %+v", prog)
	}
}

func TestPublishProgram(t *testing.T) {
	h := newHarness(0)
	h.schedules[models.GameStarRail] = config.StreamSchedule{StreamTime: testNow.Unix() - 60, Version: "3.1"}
	ctx := context.Background()

	if _, err := h.p.PublishProgram(ctx, models.GameStarRail, "3.1"); !errors.Is(err, ErrProgramNotFound) {
		t.Fatalf("PublishProgram() before found = %v", err)
	}
	if len(h.fanout.sent) != 0 {
		t.Fatal("unfound program was sent")
	}

	h.stream.res[models.GameStarRail] = streamCodes(2, "HSR1", "HSR2")
	if err := h.p.Poll(ctx); err != nil {
		t.Fatal(err)
	}

	preview, err := h.p.PublishProgramToGuild(ctx, models.GameStarRail, "3.1", models.NewGuildConfig("dev"))
	if err != nil || preview.Success != 1 {
		t.Fatalf("PublishProgramToGuild() = %+v, %v", preview, err)
	}
	if prog, _ := h.repo.StoredProgram(models.GameStarRail, "3.1"); prog.Published {
		t.Error("preview marked the program published")
	}

	stats, err := h.p.PublishProgram(ctx, models.GameStarRail, "3.1")
	if err != nil {
		t.Fatalf("PublishProgram() error = %v", err)
	}
	if stats.Success != 1 {
		t.Errorf("stats = %+v", stats)
	}
	prog, _ := h.repo.StoredProgram(models.GameStarRail, "3.1")
	if !prog.Published {
		t.Error("program not published")
	}
	for _, name := range []string{"HSR1", "HSR2"} {
		if c, _ := h.repo.Stored(models.GameStarRail, name); !c.Published {
			t.Errorf("member %s not published", name)
		}
	}
	if len(h.analytics.records) != 1 || h.analytics.collections[0] != models.AnalyticsHoyolabCodes ||
		h.analytics.records[0].Type != models.RecordPublish || h.analytics.records[0].Version != "3.1" {
		t.Errorf("analytics = %v %+v", h.analytics.collections, h.analytics.records)
	}

	if _, err := h.p.PublishProgram(ctx, models.GameStarRail, "3.1"); !errors.Is(err, ErrProgramPublished) {
		t.Errorf("second PublishProgram() = %v", err)
	}
	if state, _, _ := h.p.DeriveState(ctx, models.GameStarRail); state != StateDistributed {
		t.Errorf("state = %v", state)
	}
}
