package l10n

import "testing"

func TestMatch(t *testing.T) {
	tr, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		in, want string
	}{
		{"en-US", "en-US"},
		{"de", "de"},
		{"de-AT", "de"},
		{"en-GB", "en-US"},
		{"fr", "en-US"},
		{"not a locale", "en-US"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := tr.Match(tt.in); got != tt.want {
				t.Errorf("Match(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestT(t *testing.T) {
	tr, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if got := tr.T("de", "rewards"); got != "Belohnungen" {
		t.Errorf("T(de, rewards) = %q", got)
	}
	if got := tr.T("fr", "rewards"); got != "Rewards" {
		t.Errorf("T(fr, rewards) = %q", got)
	}
	if got := tr.T("en-US", "program.title", "version", "5.2"); got != "Version 5.2 Special Program Codes" {
		t.Errorf("T(program.title) = %q", got)
	}
	if got := tr.T("en-US", "missing.key"); got != "missing.key" {
		t.Errorf("T(missing) = %q", got)
	}

	// every key of every locale exists in the source
	for _, loc := range tr.Locales() {
		for key := range tr.strings[loc] {
			if _, ok := tr.strings[Source][key]; !ok {
				t.Errorf("%s has key %q missing from %s", loc, key, Source)
			}
		}
	}
}

func TestNumber(t *testing.T) {
	tr, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if got := tr.Number("en-US", 10000); got != "10,000" {
		t.Errorf("Number(en-US) = %q", got)
	}
	if got := tr.Number("de", 10000); got != "10.000" {
		t.Errorf("Number(de) = %q", got)
	}
}
