package models

// DefaultLanguage is used when a guild has not picked a language
const DefaultLanguage = "en-US"

// Codes config field names, relative to <game>.codes_config
const (
	CodesFieldChannel  = "channel"
	CodesFieldRolePing = "role_ping"
)

// CodesConfig is the per-game delivery configuration of a guild.
// An empty Channel means the guild is not subscribed.
type CodesConfig struct {
	Channel      string `bson:"channel" json:"channel"`
	EveryonePing bool   `bson:"everyone_ping" json:"everyone_ping"`
	RolePing     string `bson:"role_ping" json:"role_ping"`
	StreamCodes  bool   `bson:"stream_codes" json:"stream_codes"`
	AllCodes     bool   `bson:"all_codes" json:"all_codes"`
}

type EventReminderConfig struct {
	Streams bool `bson:"streams" json:"streams"`
}

type GameSettings struct {
	CodesConfig    CodesConfig         `bson:"codes_config" json:"codes_config"`
	EventReminders EventReminderConfig `bson:"event_reminders" json:"event_reminders"`
}

// GuildConfig is the stored configuration of one guild
type GuildConfig struct {
	ID              string       `bson:"id" json:"id"`
	MemberCount     *int         `bson:"member_count" json:"member_count"`
	Features        []string     `bson:"features" json:"features"`
	Flags           []string     `bson:"flags" json:"flags"`
	Language        string       `bson:"language" json:"language"`
	ExecutedHelp    bool         `bson:"executed_help" json:"executed_help"`
	PendingDeletion bool         `bson:"pending_deletion" json:"pending_deletion"`
	Genshin         GameSettings `bson:"GenshinImpact" json:"GenshinImpact"`
	StarRail        GameSettings `bson:"StarRail" json:"StarRail"`
	ZZZ             GameSettings `bson:"ZenlessZoneZero" json:"ZenlessZoneZero"`
}

// NewGuildConfig returns the default configuration of a newly joined guild
func NewGuildConfig(id string) *GuildConfig {
	return &GuildConfig{
		ID:       id,
		Features: []string{},
		Flags:    []string{},
		Language: DefaultLanguage,
	}
}

// Settings returns the per-game settings, nil for an unknown game
func (g *GuildConfig) Settings(game Game) *GameSettings {
	switch game {
	case GameGenshin:
		return &g.Genshin
	case GameStarRail:
		return &g.StarRail
	case GameZZZ:
		return &g.ZZZ
	}
	return nil
}

// Codes is a shortcut for Settings(game).CodesConfig
func (g *GuildConfig) Codes(game Game) CodesConfig {
	if s := g.Settings(game); s != nil {
		return s.CodesConfig
	}
	return CodesConfig{}
}

// Locale returns the guild language or the default one
func (g *GuildConfig) Locale() string {
	if g.Language == "" {
		return DefaultLanguage
	}
	return g.Language
}

// CodesField returns the dotted path of a codes_config field for a game
func CodesField(game Game, field string) string {
	return game.DatabaseKey() + ".codes_config." + field
}
