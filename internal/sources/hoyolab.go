package sources

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

// streamModuleType is the material module holding livestream codes
const streamModuleType = 7

type materialResponse struct {
	Retcode int    `json:"retcode"`
	Message string `json:"message"`
	Data    struct {
		Modules []materialModule `json:"modules"`
	} `json:"data"`
}

type materialModule struct {
	ModuleType    int            `json:"module_type"`
	ExchangeGroup *exchangeGroup `json:"exchange_group"`
}

type exchangeGroup struct {
	Bonuses        []bonus `json:"bonuses"`
	BonusesSummary struct {
		CodeCount int `json:"code_count"`
	} `json:"bonuses_summary"`
	ImageURL string `json:"image_url"`
}

type bonus struct {
	ExchangeCode string      `json:"exchange_code"`
	OfflineAt    int64       `json:"offline_at"`
	IconBonuses  []iconBonus `json:"icon_bonuses"`
}

type iconBonus struct {
	Name     string `json:"name"`
	BonusNum int    `json:"bonus_num"`
	IconURL  string `json:"icon_url"`
}

// StreamCode is one code listed by the stream companion page
type StreamCode struct {
	Code       string
	ExpireUnix int64
	Rewards    []models.CodeReward
}

// StreamCodes is the parsed livestream module of one game
type StreamCodes struct {
	// Present is false when the page carries no livestream module
	Present   bool
	CodeCount int
	Codes     []StreamCode
	Image     string
	// ExpireUnix is the latest expiry among the listed codes
	ExpireUnix int64
}

// Complete reports whether every announced code is already listed
func (s *StreamCodes) Complete() bool {
	return s.Present && len(s.Codes) > 0 && s.CodeCount == len(s.Codes)
}

func materialHeaders(gameID int) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json, text/plain, */*")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Origin", "https://www.hoyolab.com")
	h.Set("Referer", "https://www.hoyolab.com/")
	h.Set("Sec-Ch-Ua", `"Chromium";v="130", "Google Chrome";v="130", "Not?A_Brand";v="99"`)
	h.Set("Sec-Ch-Ua-Mobile", "?1")
	h.Set("Sec-Ch-Ua-Platform", "Windows")
	h.Set("Sec-Fetch-Dest", "empty")
	h.Set("Sec-Fetch-Mode", "cors")
	h.Set("Sec-Fetch-Site", "same-site")
	h.Set("X-Rpc-App_version", "3.1.0")
	h.Set("X-Rpc-Client_type", "5")
	h.Set("X-Rpc-Language", "en-us")
	h.Set("X-Rpc-Show-Translated", "False")
	h.Set("X-Rpc-Sys_version", "Windows NT 10.0")
	h.Set("X-Rpc-Game_id", strconv.Itoa(gameID))
	return h
}

// FetchStream polls the HoYoLAB material page of a game
func (c *Client) FetchStream(ctx context.Context, game models.Game) (*StreamCodes, error) {
	url := fmt.Sprintf("%s%s?game_id=%d", c.hoyolabURL, materialPath, game.HoyolabID())
	body, err := c.get(ctx, url, materialHeaders(game.HoyolabID()))
	if err != nil {
		return nil, fmt.Errorf("fetch material for %s: %w", game, err)
	}
	return ParseMaterial(body)
}

// ParseMaterial decodes a material response. A missing stream module is not
// an error, it yields StreamCodes with Present false.
func ParseMaterial(body []byte) (*StreamCodes, error) {
	var resp materialResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode material response: %w", err)
	}
	if resp.Retcode != 0 {
		return nil, fmt.Errorf("material api retcode %d: %s", resp.Retcode, resp.Message)
	}

	var group *exchangeGroup
	for _, m := range resp.Data.Modules {
		if m.ModuleType == streamModuleType && m.ExchangeGroup != nil {
			group = m.ExchangeGroup
		}
	}
	if group == nil {
		return &StreamCodes{}, nil
	}

	out := &StreamCodes{
		Present:   true,
		CodeCount: group.BonusesSummary.CodeCount,
		Image:     group.ImageURL,
	}
	for _, b := range group.Bonuses {
		if b.ExchangeCode == "" {
			continue
		}
		sc := StreamCode{Code: b.ExchangeCode, ExpireUnix: b.OfflineAt}
		for _, ib := range b.IconBonuses {
			// entries without a name cannot be shown or merged
			if ib.Name == "" || ib.BonusNum <= 0 {
				continue
			}
			sc.Rewards = append(sc.Rewards, models.CodeReward{Reward: ib.Name, Amount: ib.BonusNum})
		}
		if b.OfflineAt > out.ExpireUnix {
			out.ExpireUnix = b.OfflineAt
		}
		out.Codes = append(out.Codes, sc)
	}
	return out, nil
}
