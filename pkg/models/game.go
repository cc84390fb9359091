// Package models contains the documents stored by the bot and the game catalogue.
package models

import "fmt"

// Game identifies one of the supported live-service games
type Game string

const (
	GameGenshin  Game = "Genshin Impact"
	GameStarRail Game = "Honkai: Star Rail"
	GameZZZ      Game = "Zenless Zone Zero"
)

// Games lists every supported game in publishing order
var Games = []Game{GameGenshin, GameStarRail, GameZZZ}

type gameInfo struct {
	dbKey     string
	hoyolabID int
	redeemURL string
	wikiPage  string
	thumbnail string
}

var catalogue = map[Game]gameInfo{
	GameGenshin: {
		dbKey:     "GenshinImpact",
		hoyolabID: 2,
		redeemURL: "https://genshin.hoyoverse.com/en/gift?code=",
		wikiPage:  "https://genshin-impact.fandom.com/wiki/Promotional_Code",
		thumbnail: "Icon_Paimon_Menu.png",
	},
	GameStarRail: {
		dbKey:     "StarRail",
		hoyolabID: 6,
		redeemURL: "https://hsr.hoyoverse.com/gift?code=",
		wikiPage:  "https://honkai-star-rail.fandom.com/wiki/Redemption_Code",
		thumbnail: "Icon_Pom_Menu.png",
	},
	GameZZZ: {
		dbKey:     "ZenlessZoneZero",
		hoyolabID: 8,
		redeemURL: "https://zenless.hoyoverse.com/redemption?code=",
		wikiPage:  "https://zenless-zone-zero.fandom.com/wiki/Redemption_Code",
		thumbnail: "Icon_Bangboo_Menu.png",
	},
}

// ParseGame accepts either the display name or the database key of a game
func ParseGame(s string) (Game, error) {
	for g, info := range catalogue {
		if string(g) == s || info.dbKey == s {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown game %q", s)
}

// Valid reports whether g is part of the catalogue
func (g Game) Valid() bool {
	_, ok := catalogue[g]
	return ok
}

// DatabaseKey is the field name used for per-game sub-documents
func (g Game) DatabaseKey() string {
	return catalogue[g].dbKey
}

// HoyolabID is the game_id used by the HoYoLAB community API
func (g Game) HoyolabID() int {
	return catalogue[g].hoyolabID
}

// RedeemURL returns the web redemption link for a code
func (g Game) RedeemURL(code string) string {
	return catalogue[g].redeemURL + code
}

// WikiPage returns the community wiki page listing codes, empty if none
func (g Game) WikiPage() string {
	return catalogue[g].wikiPage
}

// Thumbnail is the file name of the embed thumbnail asset
func (g Game) Thumbnail() string {
	return catalogue[g].thumbnail
}
