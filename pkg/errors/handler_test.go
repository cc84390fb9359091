package errors

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestReportPostsEmbed(t *testing.T) {
	bodies := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies <- string(b)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	h := NewErrorHandler(srv.URL, nil)
	h.Report(ReportErrorOptions{Error: "WikiCodes", Message: "header mismatch"})

	select {
	case body := <-bodies:
		if !strings.Contains(body, "Error WikiCodes") || !strings.Contains(body, "header mismatch") {
			t.Errorf("unexpected webhook body: %s", body)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was not called")
	}
}

func TestCaptureCounts(t *testing.T) {
	h := NewErrorHandler("", nil)

	h.Capture(nil, "ignored")
	h.Capture(fmt.Errorf("boom"), "Pipeline")
	h.Capture(fmt.Errorf("boom again"), "Pipeline")

	if got := h.Captured(); got != 2 {
		t.Errorf("Captured() = %d, want 2", got)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic escaped RecoverMiddleware: %v", r)
		}
	}()

	func() {
		defer RecoverMiddleware()()
		panic("job failed")
	}()
}
