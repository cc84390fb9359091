package redeem

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
)

func testKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	return key, string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

// loginServer accepts email/secret and answers with retcode and cookies
func loginServer(t *testing.T, key *rsa.PrivateKey, retcode int, cookies ...*http.Cookie) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Account  string `json:"account"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		for _, f := range []struct{ enc, want string }{
			{body.Account, "bot@example.com"},
			{body.Password, "secret"},
		} {
			enc, _ := base64.StdEncoding.DecodeString(f.enc)
			got, err := rsa.DecryptPKCS1v15(rand.Reader, key, enc)
			if err != nil || string(got) != f.want {
				t.Errorf("decrypted %q (%v), want %q", got, err, f.want)
			}
		}
		if r.Header.Get("x-rpc-app_id") != loginAppID {
			t.Errorf("x-rpc-app_id = %q", r.Header.Get("x-rpc-app_id"))
		}
		for _, ck := range cookies {
			http.SetCookie(w, ck)
		}
		fmt.Fprintf(w, `{"retcode":%d,"message":"msg"}`, retcode)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestLogin(srv *httptest.Server, pemKey string) *Login {
	return NewLogin("bot@example.com", "secret", WithLoginURL(srv.URL), WithLoginKey(pemKey))
}

func TestLoginCookies(t *testing.T) {
	key, pemKey := testKey(t)
	tokens := []*http.Cookie{{Name: "ltoken_v2", Value: "tok"}, {Name: "ltuid_v2", Value: "42"}}

	tests := []struct {
		name    string
		retcode int
		cookies []*http.Cookie
		want    string
		wantErr error
	}{
		{"ok", 0, tokens, "ltoken_v2=tok ltuid_v2=42", nil},
		{"captcha", retcodeCaptcha, tokens, "", ErrLoginCaptcha},
		{"no cookies", 0, nil, "", ErrNoCookies},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := loginServer(t, key, tt.retcode, tt.cookies...)
			got, err := newTestLogin(srv, pemKey).Cookies(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Cookies() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Cookies() = %q, want %q", got, tt.want)
			}
		})
	}

	srv := loginServer(t, key, -3208)
	var apiErr *APIError
	if _, err := newTestLogin(srv, pemKey).Cookies(context.Background()); !errors.As(err, &apiErr) || apiErr.Retcode != -3208 {
		t.Errorf("Cookies() error = %v, want APIError -3208", err)
	}
}

func TestEnvSessionLoginRefresh(t *testing.T) {
	key, pemKey := testKey(t)
	srv := loginServer(t, key, 0, &http.Cookie{Name: "ltoken_v2", Value: "fresh"}, &http.Cookie{Name: "ltuid_v2", Value: "42"})

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("botToken=keep\n"+CookieEnvKey+"=ltoken_v2=old\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s := NewEnvSession(path, "ltoken_v2=old", WithLogin(newTestLogin(srv, pemKey)))

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if c := s.Cookies(); len(c) != 2 || c[0].Value != "fresh" {
		t.Errorf("Cookies() = %v", c)
	}

	env, err := godotenv.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if env[CookieEnvKey] != "ltoken_v2=fresh ltuid_v2=42" || env["botToken"] != "keep" {
		t.Errorf("env file = %v", env)
	}
}

func TestEnvSessionLoginFallsBackToFile(t *testing.T) {
	key, pemKey := testKey(t)
	srv := loginServer(t, key, retcodeCaptcha)

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(CookieEnvKey+"=\"ltoken_v2=edited\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s := NewEnvSession(path, "ltoken_v2=old", WithLogin(newTestLogin(srv, pemKey)))

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if c := s.Cookies(); len(c) != 1 || c[0].Value != "edited" {
		t.Errorf("Cookies() = %v", c)
	}
}
