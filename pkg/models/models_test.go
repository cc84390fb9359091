package models

import "testing"

func TestParseGame(t *testing.T) {
	tests := []struct {
		in      string
		want    Game
		wantErr bool
	}{
		{"Genshin Impact", GameGenshin, false},
		{"StarRail", GameStarRail, false},
		{"ZenlessZoneZero", GameZZZ, false},
		{"Honkai Impact 3rd", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGame(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGame() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseGame() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRedeemURL(t *testing.T) {
	if got := GameZZZ.RedeemURL("ABC"); got != "https://zenless.hoyoverse.com/redemption?code=ABC" {
		t.Errorf("RedeemURL() = %v", got)
	}
}

func TestCodeOutcome(t *testing.T) {
	yes, no := true, false
	tests := []struct {
		name     string
		redeemed *bool
		want     RedemptionOutcome
	}{
		{"unknown", nil, OutcomeUnknown},
		{"succeeded", &yes, OutcomeSucceeded},
		{"failed", &no, OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Code{Redeemed: tt.redeemed}
			if got := c.Outcome(); got != tt.want {
				t.Errorf("Outcome() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGuildConfigSettings(t *testing.T) {
	g := NewGuildConfig("1")
	g.Settings(GameStarRail).CodesConfig.Channel = "42"

	if got := g.Codes(GameStarRail).Channel; got != "42" {
		t.Errorf("Codes().Channel = %v, want 42", got)
	}
	if g.Codes(GameGenshin).Channel != "" {
		t.Error("Genshin settings should be untouched")
	}
	if got := CodesField(GameStarRail, CodesFieldChannel); got != "StarRail.codes_config.channel" {
		t.Errorf("CodesField() = %v", got)
	}
	if g.Locale() != DefaultLanguage {
		t.Errorf("Locale() = %v, want %v", g.Locale(), DefaultLanguage)
	}
}

func TestPublishStatsTotal(t *testing.T) {
	s := PublishStats{Success: 3, Failed: 1, Forbidden: 2, NoChannel: 4, NoRole: 2}
	if s.Total() != 10 {
		t.Errorf("Total() = %d, want 10", s.Total())
	}
}
