package redeem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/singleflight"

	"github.com/PancyStudios/ZenoxGo/pkg/logger"
)

// CookieEnvKey is the env entry holding the HoYoLAB account cookies
const CookieEnvKey = "HOYOLAB_COOKIES"

// ErrRefreshUnchanged is returned when the env file still holds the cookies
// that were just rejected
var ErrRefreshUnchanged = errors.New("hoyolab cookies unchanged after refresh")

// Session supplies the account cookies for redeem calls
type Session interface {
	Cookies() []*http.Cookie
	Refresh(ctx context.Context) error
}

// loginTimeout bounds one shared refresh
const loginTimeout = time.Minute

// EnvSession keeps the cookies from an env file. With a login configured a
// refresh signs in again and writes the new cookies back to the file;
// otherwise, or when the login fails, it rereads the file.
type EnvSession struct {
	path  string
	login *Login

	mu  sync.RWMutex
	raw string

	group singleflight.Group
}

// SessionOption configures an EnvSession
type SessionOption func(*EnvSession)

// WithLogin refreshes expired cookies by logging in with l
func WithLogin(l *Login) SessionOption {
	return func(s *EnvSession) { s.login = l }
}

func NewEnvSession(path, cookies string, opts ...SessionOption) *EnvSession {
	s := &EnvSession{path: path, raw: cookies}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *EnvSession) Cookies() []*http.Cookie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ParseCookies(s.raw)
}

// Refresh replaces the cookies. Concurrent callers share one refresh.
func (s *EnvSession) Refresh(ctx context.Context) error {
	ch := s.group.DoChan("refresh", func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loginTimeout)
		defer cancel()
		return nil, s.refresh(rctx)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (s *EnvSession) refresh(ctx context.Context) error {
	if s.login != nil {
		fresh, err := s.login.Cookies(ctx)
		if err == nil {
			s.set(fresh)
			logger.Success("Logged in to HoYoLAB with new cookies", "Redeem")
			if err := s.persist(fresh); err != nil {
				logger.Warn(fmt.Sprintf("Could not save the new cookies to %s: %v", s.path, err), "Redeem")
			}
			return nil
		}
		logger.Warn(fmt.Sprintf("HoYoLAB login failed, rereading %s: %v", s.path, err), "Redeem")
	}

	env, err := godotenv.Read(s.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	fresh := strings.TrimSpace(env[CookieEnvKey])

	s.mu.Lock()
	defer s.mu.Unlock()
	if fresh == "" || fresh == s.raw {
		return ErrRefreshUnchanged
	}
	s.raw = fresh
	logger.Info("Reloaded HoYoLAB cookies", "Redeem")
	return nil
}

func (s *EnvSession) set(raw string) {
	s.mu.Lock()
	s.raw = raw
	s.mu.Unlock()
}

// persist writes the cookies into the env file, keeping its other entries
func (s *EnvSession) persist(cookies string) error {
	env, err := godotenv.Read(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		env = map[string]string{}
	}
	env[CookieEnvKey] = cookies
	return godotenv.Write(env, s.path)
}

// ParseCookies reads "k=v" pairs separated by spaces or semicolons
func ParseCookies(raw string) []*http.Cookie {
	var out []*http.Cookie
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == ' ' || r == '\n' || r == '\t' })
	for _, pair := range fields {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			continue
		}
		out = append(out, &http.Cookie{Name: k, Value: strings.Trim(v, `'"`)})
	}
	return out
}
