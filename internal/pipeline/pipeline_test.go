package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/ZenoxGo/internal/codes"
	"github.com/PancyStudios/ZenoxGo/internal/codes/codestest"
	"github.com/PancyStudios/ZenoxGo/internal/operator"
	"github.com/PancyStudios/ZenoxGo/internal/publisher"
	"github.com/PancyStudios/ZenoxGo/internal/redeem"
	"github.com/PancyStudios/ZenoxGo/internal/sources"
	"github.com/PancyStudios/ZenoxGo/pkg/config"
	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

type fakeWiki struct {
	pages map[models.Game]string
	errs  map[models.Game]error
	calls int
}

func (f *fakeWiki) FetchWiki(ctx context.Context, game models.Game) ([]sources.WikiRow, error) {
	f.calls++
	if err := f.errs[game]; err != nil {
		return nil, err
	}
	page, ok := f.pages[game]
	if !ok {
		return nil, nil
	}
	return sources.ParseWiki(strings.NewReader(page))
}

type fakeStream struct {
	res   map[models.Game]*sources.StreamCodes
	calls int
}

func (f *fakeStream) FetchStream(ctx context.Context, game models.Game) (*sources.StreamCodes, error) {
	f.calls++
	if r, ok := f.res[game]; ok {
		return r, nil
	}
	return &sources.StreamCodes{}, nil
}

type fakeRedeemer struct {
	results map[string]redeem.Result
	errs    map[string]error
	calls   []string
}

func (f *fakeRedeemer) Redeem(ctx context.Context, game models.Game, code string) (redeem.Result, error) {
	f.calls = append(f.calls, code)
	if err := f.errs[code]; err != nil {
		return redeem.Result{}, err
	}
	if r, ok := f.results[code]; ok {
		return r, nil
	}
	return redeem.Result{Outcome: redeem.Redeemed}, nil
}

type fakeFanout struct {
	sent       []*publisher.Notification
	recipients [][]*models.GuildConfig
}

func (f *fakeFanout) Publish(ctx context.Context, n *publisher.Notification, recipients []*models.GuildConfig) models.PublishStats {
	f.sent = append(f.sent, n)
	f.recipients = append(f.recipients, recipients)
	return models.PublishStats{Success: len(recipients)}
}

type fakeRecipients struct {
	guilds []*models.GuildConfig
	err    error
}

func (f *fakeRecipients) All(ctx context.Context) ([]*models.GuildConfig, error) {
	return f.guilds, f.err
}

type fakeReporter struct {
	mu      sync.Mutex
	reports []operator.Report
}

func (f *fakeReporter) Report(r operator.Report) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, r)
}

func (f *fakeReporter) titles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.reports))
	for i, r := range f.reports {
		out[i] = r.Title
	}
	return out
}

func (f *fakeReporter) has(title string) bool {
	for _, t := range f.titles() {
		if t == title {
			return true
		}
	}
	return false
}

type fakeAnalytics struct {
	collections []string
	records     []models.PublishRecord
}

func (f *fakeAnalytics) InsertPublishRecord(ctx context.Context, collection string, rec models.PublishRecord) error {
	f.collections = append(f.collections, collection)
	f.records = append(f.records, rec)
	return nil
}

type fakeSchedules map[models.Game]config.StreamSchedule

func (f fakeSchedules) Get(game models.Game) config.StreamSchedule {
	return f[game]
}

type fakeEvents struct {
	events []string
}

func (f *fakeEvents) PublishEvent(event string, payload interface{}) error {
	f.events = append(f.events, event)
	return nil
}

type fakeBoard struct {
	contents []string
}

func (f *fakeBoard) EditStatus(channelID, messageID, content string, embed *discordgo.MessageEmbed, thumbnail []byte) error {
	f.contents = append(f.contents, content)
	return nil
}

type keyTranslator struct{}

func (keyTranslator) T(locale, key string, args ...string) string { return key }
func (keyTranslator) Number(locale string, n int) string          { return fmt.Sprint(n) }

type harness struct {
	p         *Pipeline
	repo      *codestest.Memory
	store     *codes.Store
	programs  *codes.Programs
	wiki      *fakeWiki
	stream    *fakeStream
	redeemer  *fakeRedeemer
	fanout    *fakeFanout
	guilds    *fakeRecipients
	reporter  *fakeReporter
	analytics *fakeAnalytics
	schedules fakeSchedules
	events    *fakeEvents
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newHarness(limit int) *harness {
	h := &harness{
		repo:      codestest.NewMemory(),
		wiki:      &fakeWiki{pages: map[models.Game]string{}, errs: map[models.Game]error{}},
		stream:    &fakeStream{res: map[models.Game]*sources.StreamCodes{}},
		redeemer:  &fakeRedeemer{results: map[string]redeem.Result{}, errs: map[string]error{}},
		fanout:    &fakeFanout{},
		guilds:    &fakeRecipients{guilds: []*models.GuildConfig{models.NewGuildConfig("1")}},
		reporter:  &fakeReporter{},
		analytics: &fakeAnalytics{},
		schedules: fakeSchedules{},
		events:    &fakeEvents{},
	}
	h.store = codes.NewStore(h.repo)
	h.programs = codes.NewPrograms(h.repo, h.store)
	h.p = New(Deps{
		Codes:      h.store,
		Programs:   h.programs,
		Wiki:       h.wiki,
		Stream:     h.stream,
		Redeemer:   h.redeemer,
		Fanout:     h.fanout,
		Recipients: h.guilds,
		Analytics:  h.analytics,
		Reporter:   h.reporter,
		Schedules:  h.schedules,
		Translator: keyTranslator{},
		Events:     h.events,
		Limit:      limit,
	})
	h.p.now = func() time.Time { return testNow }
	return h
}

// queue puts single-code groups on the queue of a game
func (h *harness) queue(t *testing.T, game models.Game, names ...string) {
	t.Helper()
	for _, name := range names {
		c, err := h.store.GetOrCreate(context.Background(), game, name)
		if err != nil {
			t.Fatal(err)
		}
		if !h.p.enqueue(game, Group{c}) {
			t.Fatalf("%s already queued", name)
		}
	}
}

func (h *harness) queuedLeads(game models.Game) []string {
	var out []string
	for _, g := range h.p.Snapshot().Queues[game] {
		out = append(out, g.Lead)
	}
	return out
}

const wikiPage = `<table>
<tr><th>Code</th><th>Server</th><th>Rewards</th><th>Duration</th></tr>
<tr><td>ABCD EFGH [New]</td><td>All</td><td>Primogem ×60<br>Mora ×5,000</td><td>Discovered: May 1</td></tr>
<tr><td>HoYo FEST 2024</td><td>All</td><td>Primogem ×10</td><td>Discovered: Jan 1</td></tr>
<tr><td>CNONLY</td><td>China</td><td>Primogem ×10</td><td>Discovered: Jan 1</td></tr>
<tr><td>GENSHINGIFT</td><td>All</td><td>Primogem ×50</td><td>Discovered: Jan 1</td></tr>
</table>`

func TestDiscoverQueuesNewGroups(t *testing.T) {
	h := newHarness(0)
	h.wiki.pages[models.GameGenshin] = wikiPage

	if err := h.p.Discover(context.Background()); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	got := h.queuedLeads(models.GameGenshin)
	want := []string{"ABCD", "GENSHINGIFT"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("queue = %v, want %v", got, want)
	}
	for _, name := range []string{"HoYo", "FEST", "2024"} {
		if _, ok := h.repo.Stored(models.GameGenshin, name); ok {
			t.Errorf("denylisted program row stored %s", name)
		}
	}

	// the China code is stored but not queued
	cn, ok := h.repo.Stored(models.GameGenshin, "CNONLY")
	if !ok || !cn.China() {
		t.Errorf("CNONLY = %+v, %v", cn, ok)
	}

	group := h.p.Snapshot().Queues[models.GameGenshin][0]
	if strings.Join(group.Codes, ",") != "ABCD,EFGH" {
		t.Errorf("group codes = %v", group.Codes)
	}
	efgh, _ := h.repo.Stored(models.GameGenshin, "EFGH")
	if len(efgh.Rewards) != 2 || efgh.DiscoveredUnix == nil || *efgh.DiscoveredUnix != testNow.Unix() {
		t.Errorf("alias EFGH = %+v", efgh)
	}
	if !h.reporter.has("Added Codes") {
		t.Errorf("reports = %v", h.reporter.titles())
	}

	// a second run finds nothing new
	if err := h.p.Discover(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := h.p.QueueLen(models.GameGenshin); n != 2 {
		t.Errorf("QueueLen after rerun = %d", n)
	}
	if !h.reporter.has("No Codes Found") {
		t.Errorf("reports = %v", h.reporter.titles())
	}
}

func TestDiscoverSkipsSettledCodes(t *testing.T) {
	h := newHarness(0)
	h.wiki.pages[models.GameGenshin] = wikiPage
	no := false
	h.repo.Seed(&models.Code{Game: models.GameGenshin, Code: "ABCD", Redeemed: &no, Rewards: []models.CodeReward{}})
	h.repo.Seed(&models.Code{Game: models.GameGenshin, Code: "GENSHINGIFT", Published: true, Rewards: []models.CodeReward{}})

	if err := h.p.Discover(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := h.p.QueueLen(models.GameGenshin); n != 0 {
		t.Errorf("queue = %v", h.queuedLeads(models.GameGenshin))
	}
}

func TestDiscoverGamesFailIndependently(t *testing.T) {
	h := newHarness(0)
	h.wiki.errs[models.GameGenshin] = sources.ErrHeaderMismatch
	h.wiki.pages[models.GameStarRail] = wikiPage

	err := h.p.Discover(context.Background())
	if !errors.Is(err, sources.ErrHeaderMismatch) {
		t.Fatalf("Discover() error = %v", err)
	}
	if n := h.p.QueueLen(models.GameStarRail); n != 2 {
		t.Errorf("Star Rail queue = %d, want 2", n)
	}
	if state, _ := h.p.State(); state != Running {
		t.Error("a scrape failure must not halt the pipeline")
	}
}

func TestCheckPublishRespectsLimit(t *testing.T) {
	h := newHarness(2)
	h.queue(t, models.GameGenshin, "G1", "G2", "G3")

	if err := h.p.CheckPublish(context.Background()); err != nil {
		t.Fatalf("CheckPublish() error = %v", err)
	}

	if got := strings.Join(h.redeemer.calls, ","); got != "G1,G2" {
		t.Errorf("redeemed %s, want G1,G2", got)
	}
	if got := h.queuedLeads(models.GameGenshin); len(got) != 1 || got[0] != "G3" {
		t.Errorf("queue = %v, want [G3]", got)
	}
	if len(h.fanout.sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(h.fanout.sent))
	}
	for _, name := range []string{"G1", "G2"} {
		c, _ := h.repo.Stored(models.GameGenshin, name)
		if !c.Published || c.Outcome() != models.OutcomeSucceeded {
			t.Errorf("%s = %+v", name, c)
		}
	}
	if g3, _ := h.repo.Stored(models.GameGenshin, "G3"); g3.Published || g3.Outcome() != models.OutcomeUnknown {
		t.Errorf("G3 touched: %+v", g3)
	}

	if len(h.analytics.records) != 1 {
		t.Fatalf("analytics records = %d", len(h.analytics.records))
	}
	rec := h.analytics.records[0]
	if h.analytics.collections[0] != models.AnalyticsWikiCodes || rec.Type != models.RecordSendWikiCodes ||
		rec.RunID == "" || rec.Stats.Success != 1 {
		t.Errorf("record = %+v", rec)
	}
}

func TestCheckPublishRemovesClaimedCodes(t *testing.T) {
	h := newHarness(0)
	h.queue(t, models.GameGenshin, "CLAIMEDONE", "FRESHCODE")
	h.redeemer.results["CLAIMEDONE"] = redeem.Result{Outcome: redeem.Claimed, Retcode: -2017, Message: "already in use"}

	if err := h.p.CheckPublish(context.Background()); err != nil {
		t.Fatalf("CheckPublish() error = %v", err)
	}

	if got := strings.Join(h.redeemer.calls, ","); got != "CLAIMEDONE,FRESHCODE" {
		t.Errorf("redeemed %s", got)
	}
	if n := h.p.QueueLen(models.GameGenshin); n != 0 {
		t.Errorf("queue = %v", h.queuedLeads(models.GameGenshin))
	}
	if len(h.fanout.sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(h.fanout.sent))
	}
	desc := h.fanout.sent[0].Render(models.DefaultLanguage).Embed.Description
	if strings.Contains(desc, "CLAIMEDONE") || !strings.Contains(desc, "FRESHCODE") {
		t.Errorf("description = %q", desc)
	}

	claimed, _ := h.repo.Stored(models.GameGenshin, "CLAIMEDONE")
	if claimed.Published || claimed.Outcome() != models.OutcomeFailed {
		t.Errorf("CLAIMEDONE = %+v", claimed)
	}
	if !h.reporter.has("Removed Codes") {
		t.Errorf("reports = %v", h.reporter.titles())
	}
}

func TestCheckPublishHaltsOnUnknownError(t *testing.T) {
	h := newHarness(0)
	h.wiki.pages[models.GameGenshin] = wikiPage
	h.queue(t, models.GameGenshin, "G1", "G2")
	h.redeemer.errs["G1"] = &redeem.APIError{Retcode: -1071, Message: "please log in"}

	err := h.p.CheckPublish(context.Background())
	var apiErr *redeem.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("CheckPublish() error = %v", err)
	}
	if state, reason := h.p.State(); state != Halted || reason == "" {
		t.Fatalf("State() = %v, %q", state, reason)
	}
	if got := strings.Join(h.redeemer.calls, ","); got != "G1" {
		t.Errorf("redeemed %s, G2 must stay untouched", got)
	}
	if n := h.p.QueueLen(models.GameGenshin); n != 2 {
		t.Errorf("QueueLen = %d", n)
	}
	if len(h.fanout.sent) != 0 {
		t.Error("halted run sent a notification")
	}
	if !h.reporter.has("Pipeline halted") {
		t.Errorf("reports = %v", h.reporter.titles())
	}

	if err := h.p.Discover(context.Background()); !errors.Is(err, ErrHalted) {
		t.Errorf("Discover() while halted = %v", err)
	}
	if h.wiki.calls != 0 {
		t.Errorf("halted Discover scraped %d pages", h.wiki.calls)
	}
	if err := h.p.CheckPublish(context.Background()); !errors.Is(err, ErrHalted) {
		t.Errorf("CheckPublish() while halted = %v", err)
	}
	if len(h.redeemer.calls) != 1 {
		t.Errorf("halted CheckPublish redeemed %v", h.redeemer.calls)
	}

	delete(h.redeemer.errs, "G1")
	if !h.p.Resume() {
		t.Error("Resume() reported the pipeline was running")
	}
	if err := h.p.CheckPublish(context.Background()); err != nil {
		t.Fatalf("CheckPublish() after Resume = %v", err)
	}
	if n := h.p.QueueLen(models.GameGenshin); n != 0 {
		t.Errorf("QueueLen after resume = %d", n)
	}
	if strings.Join(h.events.events, ",") != "pipeline.halted,pipeline.resumed,codes.published" {
		t.Errorf("events = %v", h.events.events)
	}
}

// blockingRedeemer holds the first redemption until release is closed
type blockingRedeemer struct {
	entered chan struct{}
	release chan struct{}
	err     error
}

func (b *blockingRedeemer) Redeem(ctx context.Context, game models.Game, code string) (redeem.Result, error) {
	close(b.entered)
	<-b.release
	return redeem.Result{}, b.err
}

func TestDiscoverWaitingOnHaltingCycle(t *testing.T) {
	h := newHarness(0)
	h.wiki.pages[models.GameGenshin] = wikiPage
	h.queue(t, models.GameGenshin, "G1")
	br := &blockingRedeemer{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		err:     &redeem.APIError{Retcode: -1071, Message: "please log in"},
	}
	h.p.d.Redeemer = br

	var wg sync.WaitGroup
	var publishErr, discoverErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		publishErr = h.p.CheckPublish(context.Background())
	}()
	<-br.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		discoverErr = h.p.Discover(context.Background())
	}()
	time.Sleep(20 * time.Millisecond)
	close(br.release)
	wg.Wait()

	if state, _ := h.p.State(); state != Halted {
		t.Fatalf("State() = %v, publish error = %v", state, publishErr)
	}
	if !errors.Is(discoverErr, ErrHalted) {
		t.Errorf("Discover() = %v, want ErrHalted", discoverErr)
	}
	if h.wiki.calls != 0 {
		t.Errorf("Discover scraped %d pages after the halt", h.wiki.calls)
	}
	if got := h.queuedLeads(models.GameGenshin); strings.Join(got, ",") != "G1" {
		t.Errorf("queue = %v", got)
	}
}

func TestCheckPublishKeepsQueueWhenGuildsFail(t *testing.T) {
	h := newHarness(0)
	h.queue(t, models.GameZZZ, "ZZZCODE")
	h.guilds.err = errors.New("connection refused")

	if err := h.p.CheckPublish(context.Background()); err != nil {
		t.Fatalf("CheckPublish() error = %v", err)
	}
	if len(h.redeemer.calls) != 0 {
		t.Errorf("redeemed %v without recipients", h.redeemer.calls)
	}
	if n := h.p.QueueLen(models.GameZZZ); n != 1 {
		t.Errorf("QueueLen = %d", n)
	}
}

func TestPopHead(t *testing.T) {
	h := newHarness(0)
	h.queue(t, models.GameStarRail, "FIRST", "SECOND")

	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{"not the head", "SECOND", true},
		{"head", "FIRST", false},
		{"next head", "SECOND", false},
		{"empty", "FIRST", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.p.popHead(models.GameStarRail, tt.code)
			if (err != nil) != tt.wantErr {
				t.Errorf("popHead(%s) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
		})
	}
}
