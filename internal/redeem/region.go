package redeem

import (
	"fmt"

	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

var genshinRegions = map[string]string{
	"6":  "os_usa",
	"7":  "os_euro",
	"8":  "os_asia",
	"18": "os_asia",
	"9":  "os_cht",
}

var starRailRegions = map[string]string{
	"6":  "prod_official_usa",
	"7":  "prod_official_eur",
	"8":  "prod_official_asia",
	"18": "prod_official_asia",
	"9":  "prod_official_cht",
}

var zzzRegions = map[string]string{
	"10": "prod_gf_us",
	"15": "prod_gf_eu",
	"13": "prod_gf_jp",
	"17": "prod_gf_sg",
}

// Region derives the game server of an account from its uid
func Region(game models.Game, uid string) (string, error) {
	if uid == "" {
		return "", fmt.Errorf("no uid configured for %s", game)
	}

	var table map[string]string
	switch game {
	case models.GameGenshin:
		table = genshinRegions
	case models.GameStarRail:
		table = starRailRegions
	case models.GameZZZ:
		table = zzzRegions
	default:
		return "", fmt.Errorf("unknown game %q", game)
	}

	// zzz uids carry a two digit server prefix, the others one digit except 18
	for _, n := range []int{2, 1} {
		if len(uid) < n {
			continue
		}
		if r, ok := table[uid[:n]]; ok {
			return r, nil
		}
	}
	return "", fmt.Errorf("uid %s has no known %s region", uid, game)
}
