package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

const materialBody = `{
  "retcode": 0,
  "message": "OK",
  "data": {
    "modules": [
      {"module_type": 1},
      {
        "module_type": 7,
        "exchange_group": {
          "image_url": "https://example.invalid/live.png",
          "bonuses_summary": {"code_count": 3},
          "bonuses": [
            {"exchange_code": "LIVE1", "offline_at": 1700000000,
             "icon_bonuses": [{"name": "Primogem", "bonus_num": 100}, {"bonus_num": 5}]},
            {"exchange_code": "", "offline_at": 0},
            {"exchange_code": "LIVE2", "offline_at": 1700003600,
             "icon_bonuses": [{"name": "Mora", "bonus_num": 50000}]}
          ]
        }
      }
    ]
  }
}`

func TestParseMaterial(t *testing.T) {
	got, err := ParseMaterial([]byte(materialBody))
	if err != nil {
		t.Fatalf("ParseMaterial() error = %v", err)
	}

	if !got.Present || got.CodeCount != 3 {
		t.Errorf("Present = %v, CodeCount = %d", got.Present, got.CodeCount)
	}
	if len(got.Codes) != 2 || got.Codes[0].Code != "LIVE1" || got.Codes[1].Code != "LIVE2" {
		t.Fatalf("codes = %+v", got.Codes)
	}
	wantRewards := []models.CodeReward{{Reward: "Primogem", Amount: 100}}
	if !reflect.DeepEqual(got.Codes[0].Rewards, wantRewards) {
		t.Errorf("rewards = %v, want %v", got.Codes[0].Rewards, wantRewards)
	}
	if got.ExpireUnix != 1700003600 {
		t.Errorf("ExpireUnix = %d", got.ExpireUnix)
	}
	if got.Image != "https://example.invalid/live.png" {
		t.Errorf("Image = %q", got.Image)
	}
	// three announced, two listed
	if got.Complete() {
		t.Error("Complete() = true for a partial listing")
	}
}

func TestParseMaterialWithoutStreamModule(t *testing.T) {
	got, err := ParseMaterial([]byte(`{"retcode":0,"data":{"modules":[{"module_type":2}]}}`))
	if err != nil {
		t.Fatalf("ParseMaterial() error = %v", err)
	}
	if got.Present || got.Complete() {
		t.Errorf("got %+v, want empty result", got)
	}
}

func TestParseMaterialRetcode(t *testing.T) {
	if _, err := ParseMaterial([]byte(`{"retcode":-1,"message":"busy"}`)); err == nil {
		t.Error("ParseMaterial() should fail on a non-zero retcode")
	}
}

func TestFetchStream(t *testing.T) {
	var gotQuery, gotOrigin string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotOrigin = r.Header.Get("Origin")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(materialBody))
	}))
	defer srv.Close()

	c := NewClient(WithHoyolabURL(srv.URL), WithRetry(1, time.Millisecond))
	got, err := c.FetchStream(context.Background(), models.GameZZZ)
	if err != nil {
		t.Fatalf("FetchStream() error = %v", err)
	}
	if gotQuery != "game_id=8" {
		t.Errorf("query = %q, want game_id=8", gotQuery)
	}
	if gotOrigin != "https://www.hoyolab.com" {
		t.Errorf("Origin = %q", gotOrigin)
	}
	if len(got.Codes) != 2 {
		t.Errorf("codes = %d, want 2", len(got.Codes))
	}
}
