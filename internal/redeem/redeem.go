// Package redeem validates codes by redeeming them on the bot's HoYoverse
// account.
package redeem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/PancyStudios/ZenoxGo/pkg/logger"
	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

const (
	DefaultDelay = 5 * time.Second
	exchangePath = "/common/apicdkey/api/webExchangeCdkey"
)

type endpoint struct {
	host    string
	gameBiz string
}

var endpoints = map[models.Game]endpoint{
	models.GameGenshin:  {"https://sg-hk4e-api.hoyoverse.com", "hk4e_global"},
	models.GameStarRail: {"https://sg-hkrpg-api.hoyoverse.com", "hkrpg_global"},
	models.GameZZZ:      {"https://public-operation-nap.hoyoverse.com", "nap_global"},
}

// Outcome classifies a completed redeem call
type Outcome int

const (
	Redeemed Outcome = iota
	Claimed
	Invalid
	Limited
)

func (o Outcome) String() string {
	switch o {
	case Redeemed:
		return "redeemed"
	case Claimed:
		return "claimed"
	case Invalid:
		return "invalid"
	case Limited:
		return "limited"
	default:
		return "unknown"
	}
}

// Soft reports whether the code should leave the queue without halting
func (o Outcome) Soft() bool {
	return o != Redeemed
}

// Result is the classified answer of the redeem endpoint
type Result struct {
	Outcome Outcome
	Retcode int
	Message string
}

const retcodeAuth = -100

var softRetcodes = map[int]Outcome{
	-2017: Claimed,
	-2018: Claimed,
	-2001: Invalid,
	-2003: Invalid,
	-2004: Invalid,
	-2014: Invalid,
	-2024: Limited,
	-2002: Limited,
}

// ErrSessionExpired means the cookies were rejected and could not be renewed
var ErrSessionExpired = errors.New("hoyolab session expired")

// APIError is a retcode the bot does not know how to handle
type APIError struct {
	Retcode int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("redeem retcode %d: %s", e.Retcode, e.Message)
}

type exchangeResponse struct {
	Retcode int    `json:"retcode"`
	Message string `json:"message"`
}

// Client redeems codes against the per-game exchange endpoint
type Client struct {
	httpClient *http.Client
	session    Session
	uids       map[models.Game]string
	delay      time.Duration
	// hosts overrides the endpoint host per game
	hosts map[models.Game]string
}

// Option configures a Client
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithDelay sets the pause before every redeem call
func WithDelay(d time.Duration) Option {
	return func(cl *Client) { cl.delay = d }
}

// WithHost points one game at another host
func WithHost(game models.Game, host string) Option {
	return func(cl *Client) { cl.hosts[game] = host }
}

func NewClient(session Session, uids map[models.Game]string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		session:    session,
		uids:       uids,
		delay:      DefaultDelay,
		hosts:      make(map[models.Game]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Redeem redeems code for game. Soft outcomes come back as a Result; anything
// that should stop the pipeline comes back as an error.
func (c *Client) Redeem(ctx context.Context, game models.Game, code string) (Result, error) {
	resp, err := c.exchange(ctx, game, code)
	if err != nil {
		return Result{}, err
	}

	if resp.Retcode == retcodeAuth {
		logger.Warn(fmt.Sprintf("Cookies rejected while redeeming %s, refreshing", code), "Redeem")
		if err := c.session.Refresh(ctx); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		if resp, err = c.exchange(ctx, game, code); err != nil {
			return Result{}, err
		}
		if resp.Retcode == retcodeAuth {
			return Result{}, fmt.Errorf("%w: %s", ErrSessionExpired, resp.Message)
		}
	}

	return classify(resp)
}

func classify(resp exchangeResponse) (Result, error) {
	if resp.Retcode == 0 {
		return Result{Outcome: Redeemed, Message: resp.Message}, nil
	}
	if o, ok := softRetcodes[resp.Retcode]; ok {
		return Result{Outcome: o, Retcode: resp.Retcode, Message: resp.Message}, nil
	}
	return Result{}, &APIError{Retcode: resp.Retcode, Message: resp.Message}
}

func (c *Client) exchange(ctx context.Context, game models.Game, code string) (exchangeResponse, error) {
	var out exchangeResponse

	ep, ok := endpoints[game]
	if !ok {
		return out, fmt.Errorf("no redeem endpoint for %q", game)
	}
	uid := c.uids[game]
	region, err := Region(game, uid)
	if err != nil {
		return out, err
	}

	select {
	case <-ctx.Done():
		return out, ctx.Err()
	case <-time.After(c.delay):
	}

	host := ep.host
	if h, ok := c.hosts[game]; ok {
		host = h
	}
	q := url.Values{}
	q.Set("uid", uid)
	q.Set("region", region)
	q.Set("lang", "en")
	q.Set("cdkey", code)
	q.Set("game_biz", ep.gameBiz)
	q.Set("sLangKey", "en-us")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+exchangePath+"?"+q.Encode(), nil)
	if err != nil {
		return out, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Origin", "https://www.hoyoverse.com")
	for _, ck := range c.session.Cookies() {
		req.AddCookie(ck)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("redeem %s: %w", code, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, fmt.Errorf("read redeem response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("redeem %s: status %d", code, resp.StatusCode)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode redeem response: %w", err)
	}
	return out, nil
}
