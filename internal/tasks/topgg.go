package tasks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/PancyStudios/ZenoxGo/internal/operator"
	zerrors "github.com/PancyStudios/ZenoxGo/pkg/errors"
	"github.com/PancyStudios/ZenoxGo/pkg/logger"
)

const (
	sourceTopGG = "TopGG"
	TopGGURL    = "https://top.gg/api"
)

// TopGG posts the guild count to the bot's top.gg listing
type TopGG struct {
	gateway    Gateway
	reporter   operator.Reporter
	botID      string
	token      string
	baseURL    string
	httpClient *http.Client
}

func NewTopGG(gateway Gateway, reporter operator.Reporter, botID, token string) *TopGG {
	return &TopGG{
		gateway:    gateway,
		reporter:   reporter,
		botID:      botID,
		token:      token,
		baseURL:    TopGGURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *TopGG) Run(ctx context.Context) error {
	count := len(t.gateway.Guilds())
	if err := t.post(ctx, count); err != nil {
		zerrors.Capture(err, sourceTopGG)
		t.reporter.Report(operator.Report{
			Source:      sourceTopGG,
			Title:       "TopGG Task",
			Content:     "Failed to update Guild Count on TopGG",
			Description: err.Error(),
			Level:       logger.LevelError,
		})
		return err
	}

	t.reporter.Report(operator.Report{
		Source:  sourceTopGG,
		Title:   "TopGG Task",
		Content: fmt.Sprintf("Updated Guild Count on TopGG to %d", count),
		Level:   logger.LevelSuccess,
	})
	return nil
}

func (t *TopGG) post(ctx context.Context, count int) error {
	body, err := json.Marshal(map[string]int{"server_count": count})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bots/%s/stats", t.baseURL, t.botID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.token)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post top.gg stats: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post top.gg stats: status %d", resp.StatusCode)
	}
	return nil
}
