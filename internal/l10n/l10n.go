// Package l10n serves the bot's translated strings.
package l10n

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Source is the locale every key must exist in
const Source = "en-US"

//go:embed locales/*.toml
var files embed.FS

// Translator maps locale tags to flattened key/value tables
type Translator struct {
	strings map[string]map[string]string
	tags    []language.Tag
	names   []string
	matcher language.Matcher
}

var (
	global     *Translator
	globalOnce sync.Once
	globalErr  error
)

// Default returns the translator built from the embedded locale files
func Default() (*Translator, error) {
	globalOnce.Do(func() {
		global, globalErr = Load()
	})
	return global, globalErr
}

// Load parses every embedded locale file
func Load() (*Translator, error) {
	entries, err := files.ReadDir("locales")
	if err != nil {
		return nil, err
	}

	t := &Translator{strings: make(map[string]map[string]string)}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".toml"))
	}
	// source first so the matcher falls back to it
	sort.Slice(names, func(i, j int) bool {
		if names[i] == Source || names[j] == Source {
			return names[i] == Source
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		data, err := files.ReadFile(path.Join("locales", name+".toml"))
		if err != nil {
			return nil, err
		}
		var raw map[string]interface{}
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("locale %s: %w", name, err)
		}
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("locale %s: %w", name, err)
		}

		flat := make(map[string]string)
		flatten("", raw, flat)
		t.strings[name] = flat
		t.tags = append(t.tags, tag)
		t.names = append(t.names, name)
	}
	if _, ok := t.strings[Source]; !ok {
		return nil, fmt.Errorf("source locale %s missing", Source)
	}
	t.matcher = language.NewMatcher(t.tags)
	return t, nil
}

func flatten(prefix string, in map[string]interface{}, out map[string]string) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			flatten(key, val, out)
		case string:
			out[key] = val
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Locales lists the loaded locale names, source first
func (t *Translator) Locales() []string {
	return append([]string(nil), t.names...)
}

// Match resolves any Discord locale string to a loaded locale, falling back
// to the source locale
func (t *Translator) Match(locale string) string {
	if _, ok := t.strings[locale]; ok {
		return locale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return Source
	}
	_, idx, conf := t.matcher.Match(tag)
	if conf == language.No {
		return Source
	}
	return t.names[idx]
}

// T returns the translation of key with {name} placeholders filled from args.
// Missing keys fall back to the source locale and finally to the key itself.
func (t *Translator) T(locale, key string, args ...string) string {
	s, ok := t.strings[t.Match(locale)][key]
	if !ok {
		if s, ok = t.strings[Source][key]; !ok {
			return key
		}
	}
	if len(args) > 0 {
		pairs := make([]string, 0, len(args))
		for i := 0; i+1 < len(args); i += 2 {
			pairs = append(pairs, "{"+args[i]+"}", args[i+1])
		}
		s = strings.NewReplacer(pairs...).Replace(s)
	}
	return s
}

// Number formats n with the locale's digit grouping
func (t *Translator) Number(locale string, n int) string {
	tag := language.MustParse(t.Match(locale))
	return message.NewPrinter(tag).Sprintf("%d", n)
}
