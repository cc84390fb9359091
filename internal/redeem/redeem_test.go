package redeem

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

type fakeSession struct {
	mu        sync.Mutex
	cookie    string
	next      string
	refreshes int
}

func (s *fakeSession) Cookies() []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ParseCookies(s.cookie)
}

func (s *fakeSession) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	if s.next == "" || s.next == s.cookie {
		return ErrRefreshUnchanged
	}
	s.cookie = s.next
	return nil
}

// server answers with the retcodes in order, repeating the last one
func server(t *testing.T, retcodes ...int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1)) - 1
		if n >= len(retcodes) {
			n = len(retcodes) - 1
		}
		fmt.Fprintf(w, `{"retcode":%d,"message":"msg %d","data":null}`, retcodes[n], retcodes[n])
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestClient(srv *httptest.Server, s Session) *Client {
	uids := map[models.Game]string{models.GameGenshin: "700000001"}
	return NewClient(s, uids, WithDelay(0), WithHost(models.GameGenshin, srv.URL))
}

func TestRedeemOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		retcode int
		want    Outcome
		soft    bool
	}{
		{"success", 0, Redeemed, false},
		{"claimed", -2017, Claimed, true},
		{"claimed by another", -2018, Claimed, true},
		{"invalid", -2003, Invalid, true},
		{"expired", -2001, Invalid, true},
		{"limit", -2024, Limited, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := server(t, tt.retcode)
			c := newTestClient(srv, &fakeSession{cookie: "ltuid_v2=1 ltoken_v2=x"})

			res, err := c.Redeem(context.Background(), models.GameGenshin, "CODE")
			if err != nil {
				t.Fatalf("Redeem() error = %v", err)
			}
			if res.Outcome != tt.want || res.Outcome.Soft() != tt.soft {
				t.Errorf("Outcome = %v, want %v", res.Outcome, tt.want)
			}
		})
	}
}

func TestRedeemUnknownRetcodeIsFatal(t *testing.T) {
	srv, _ := server(t, -1071)
	c := newTestClient(srv, &fakeSession{cookie: "a=b"})

	_, err := c.Redeem(context.Background(), models.GameGenshin, "CODE")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Retcode != -1071 {
		t.Errorf("Redeem() error = %v, want APIError -1071", err)
	}
}

func TestRedeemRefreshesOnce(t *testing.T) {
	tests := []struct {
		name      string
		retcodes  []int
		next      string
		wantErr   error
		wantCalls int32
	}{
		{"refresh then success", []int{-100, 0}, "a=new", nil, 2},
		{"refresh unchanged", []int{-100}, "a=old", ErrSessionExpired, 1},
		{"rejected twice", []int{-100, -100}, "a=new", ErrSessionExpired, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := server(t, tt.retcodes...)
			sess := &fakeSession{cookie: "a=old", next: tt.next}
			c := newTestClient(srv, sess)

			_, err := c.Redeem(context.Background(), models.GameGenshin, "CODE")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Redeem() error = %v, want %v", err, tt.wantErr)
			}
			if sess.refreshes != 1 {
				t.Errorf("refreshes = %d, want 1", sess.refreshes)
			}
			if n := atomic.LoadInt32(calls); n != tt.wantCalls {
				t.Errorf("calls = %d, want %d", n, tt.wantCalls)
			}
		})
	}
}

func TestRedeemSendsAccountParams(t *testing.T) {
	var query, cookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("region") + "|" + r.URL.Query().Get("game_biz") + "|" + r.URL.Query().Get("cdkey")
		if ck, err := r.Cookie("ltuid_v2"); err == nil {
			cookie = ck.Value
		}
		w.Write([]byte(`{"retcode":0,"message":"OK"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, &fakeSession{cookie: "ltuid_v2=42; ltoken_v2=tok"})
	if _, err := c.Redeem(context.Background(), models.GameGenshin, "ABC"); err != nil {
		t.Fatal(err)
	}
	if query != "os_euro|hk4e_global|ABC" {
		t.Errorf("query = %q", query)
	}
	if cookie != "42" {
		t.Errorf("ltuid_v2 cookie = %q", cookie)
	}
}

func TestRedeemDelayRespectsContext(t *testing.T) {
	srv, calls := server(t, 0)
	c := NewClient(&fakeSession{}, map[models.Game]string{models.GameGenshin: "600000000"},
		WithDelay(time.Hour), WithHost(models.GameGenshin, srv.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := c.Redeem(ctx, models.GameGenshin, "CODE"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Redeem() error = %v, want deadline exceeded", err)
	}
	if n := atomic.LoadInt32(calls); n != 0 {
		t.Errorf("calls = %d, want 0", n)
	}
}

func TestRegion(t *testing.T) {
	tests := []struct {
		game    models.Game
		uid     string
		want    string
		wantErr bool
	}{
		{models.GameGenshin, "600000000", "os_usa", false},
		{models.GameGenshin, "700000000", "os_euro", false},
		{models.GameGenshin, "1800000000", "os_asia", false},
		{models.GameGenshin, "900000000", "os_cht", false},
		{models.GameStarRail, "800000000", "prod_official_asia", false},
		{models.GameZZZ, "1000000000", "prod_gf_us", false},
		{models.GameZZZ, "1500000000", "prod_gf_eu", false},
		{models.GameZZZ, "1300000000", "prod_gf_jp", false},
		{models.GameZZZ, "1700000000", "prod_gf_sg", false},
		{models.GameZZZ, "600000000", "", true},
		{models.GameGenshin, "", "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.game)+"/"+tt.uid, func(t *testing.T) {
			got, err := Region(tt.game, tt.uid)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Region() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Region() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnvSessionRefresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	write := func(v string) {
		if err := os.WriteFile(path, []byte(CookieEnvKey+"=\""+v+"\"\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	s := NewEnvSession(path, "ltuid_v2=1")
	write("ltuid_v2=1")
	if err := s.Refresh(context.Background()); !errors.Is(err, ErrRefreshUnchanged) {
		t.Errorf("Refresh() error = %v, want ErrRefreshUnchanged", err)
	}

	write("ltuid_v2=2 ltoken_v2=abc")
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	cookies := s.Cookies()
	if len(cookies) != 2 || cookies[0].Value != "2" || cookies[1].Name != "ltoken_v2" {
		t.Errorf("Cookies() = %v", cookies)
	}
}

func TestEnvSessionConcurrentRefresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(CookieEnvKey+"=a=2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s := NewEnvSession(path, "a=1")

	var wg sync.WaitGroup
	var ok, unchanged int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch err := s.Refresh(context.Background()); {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, ErrRefreshUnchanged):
				atomic.AddInt32(&unchanged, 1)
			}
		}()
	}
	wg.Wait()

	if ok == 0 || ok+unchanged != 8 {
		t.Errorf("ok = %d, unchanged = %d", ok, unchanged)
	}
	if c := s.Cookies(); len(c) != 1 || c[0].Value != "2" {
		t.Errorf("Cookies() = %v", c)
	}
}
