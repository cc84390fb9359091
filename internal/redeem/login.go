package redeem

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	loginURL       = "https://sg-public-api.hoyolab.com/account/ma-passport/api/webLoginByPassword"
	loginAppID     = "c9oqaq3s3gu8"
	loginTokenType = 6

	// retcodeCaptcha asks for a geetest challenge the bot cannot solve
	retcodeCaptcha = -3101
)

// loginKey encrypts the account and password of the web login
const loginKey = `-----BEGIN PUBLIC KEY-----
MIGfMA0GCSqGSIb3DQEBAQUAA4GNADCBiQKBgQDDvekdPMHN3AYhm/vktJT+YJr7
cI5DcsNKqdsx5DZX0gDuWFuIjzdwButrIYPNmRJ1G8ybDIF7oDW2eEpm5sMbL9zs
9ExXCdvqrn51qELbqj0XxtMTIpaCHFSI50PfPpTFV9Xt/hmyVwokoOXFlAEgCn+Q
CgGs52bFoYMtyi+xEQIDAQAB
-----END PUBLIC KEY-----`

var (
	ErrLoginCaptcha = errors.New("hoyolab login requires a captcha")
	ErrNoCookies    = errors.New("hoyolab login returned no cookies")
)

// Login signs the account in on HoYoLAB with email and password and returns
// fresh cookies
type Login struct {
	email      string
	password   string
	url        string
	key        string
	httpClient *http.Client
}

// LoginOption configures a Login
type LoginOption func(*Login)

func WithLoginURL(u string) LoginOption {
	return func(l *Login) { l.url = u }
}

// WithLoginKey replaces the PEM public key the credentials are encrypted with
func WithLoginKey(pemKey string) LoginOption {
	return func(l *Login) { l.key = pemKey }
}

func WithLoginHTTPClient(c *http.Client) LoginOption {
	return func(l *Login) { l.httpClient = c }
}

func NewLogin(email, password string, opts ...LoginOption) *Login {
	l := &Login{
		email:      email,
		password:   password,
		url:        loginURL,
		key:        loginKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type loginResponse struct {
	Retcode int    `json:"retcode"`
	Message string `json:"message"`
}

// Cookies logs in and returns the session cookies as "k=v k=v"
func (l *Login) Cookies(ctx context.Context) (string, error) {
	account, err := l.encrypt(l.email)
	if err != nil {
		return "", err
	}
	password, err := l.encrypt(l.password)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(map[string]interface{}{
		"account":    account,
		"password":   password,
		"token_type": loginTokenType,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://account.hoyolab.com")
	req.Header.Set("Referer", "https://account.hoyolab.com/")
	req.Header.Set("x-rpc-app_id", loginAppID)
	req.Header.Set("x-rpc-client_type", "4")
	req.Header.Set("x-rpc-game_biz", "bbs_oversea")
	req.Header.Set("x-rpc-source", "v2.webLogin")
	req.Header.Set("x-rpc-referrer", "https://www.hoyolab.com")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("hoyolab login: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("hoyolab login: status %d", resp.StatusCode)
	}
	var out loginResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	switch out.Retcode {
	case 0:
	case retcodeCaptcha:
		return "", ErrLoginCaptcha
	default:
		return "", &APIError{Retcode: out.Retcode, Message: out.Message}
	}

	var pairs []string
	for _, ck := range resp.Cookies() {
		if ck.Value == "" {
			continue
		}
		pairs = append(pairs, ck.Name+"="+ck.Value)
	}
	if len(pairs) == 0 {
		return "", ErrNoCookies
	}
	return strings.Join(pairs, " "), nil
}

func (l *Login) encrypt(s string) (string, error) {
	block, _ := pem.Decode([]byte(l.key))
	if block == nil {
		return "", errors.New("invalid login key")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("parse login key: %w", err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return "", errors.New("login key is not RSA")
	}
	enc, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(s))
	if err != nil {
		return "", fmt.Errorf("encrypt credentials: %w", err)
	}
	return base64.StdEncoding.EncodeToString(enc), nil
}
