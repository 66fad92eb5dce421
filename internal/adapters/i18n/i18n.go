// Package i18n turns errors into localized, user-facing messages.
//
// Messages live in an in-memory x/text catalog with English and Indonesian
// entries. Errors are matched to message keys by sentinel first and by
// substring of the raw text second, so errors from the database driver still
// get a readable message.
package i18n

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	// LangParam is the query parameter used to select a language.
	LangParam = "lang"
	// LangCookieName stores the user's language preference.
	LangCookieName = "refdesk_lang"
)

// Supported lists the catalog languages; the first is the fallback.
var Supported = []language.Tag{language.English, language.Indonesian}

var matcher = language.NewMatcher(Supported)

// Rule maps an error to a message key.
type Rule struct {
	Target error  // matched with errors.Is
	Substr string // matched against the lower-cased error text when Target is nil
	Key    string
}

// Translator localizes errors and plain keys.
type Translator struct {
	cat   *catalog.Builder
	rules []Rule
}

// New builds a Translator from translations keyed by language and message key.
// PRE: every key referenced by rules has an English entry
func New(translations map[language.Tag]map[string]string, rules []Rule) (*Translator, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range translations {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				return nil, err
			}
		}
	}
	return &Translator{cat: b, rules: rules}, nil
}

// Default returns the Translator for the built-in catalog and error rules.
func Default() *Translator {
	t, err := New(translations, rules)
	if err != nil {
		panic(err)
	}
	return t
}

// Printer returns a message printer for tag.
func (t *Translator) Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(t.cat))
}

// Text localizes a message key.
func (t *Translator) Text(tag language.Tag, key string, args ...any) string {
	return t.Printer(tag).Sprintf(key, args...)
}

// Key returns the message key for err, or KeyInternal when nothing matches.
func (t *Translator) Key(err error) string {
	if err == nil {
		return ""
	}
	for _, r := range t.rules {
		if r.Target != nil && errors.Is(err, r.Target) {
			return r.Key
		}
	}
	lower := strings.ToLower(err.Error())
	for _, r := range t.rules {
		if r.Target == nil && r.Substr != "" && strings.Contains(lower, r.Substr) {
			return r.Key
		}
	}
	return KeyInternal
}

// Message localizes err for tag.
func (t *Translator) Message(tag language.Tag, err error) string {
	return t.Text(tag, t.Key(err))
}

// Match picks the closest supported language for the given tags.
func Match(tags ...language.Tag) language.Tag {
	_, idx, _ := matcher.Match(tags...)
	return Supported[idx]
}

// ResolveTag chooses the request language from the lang query parameter, the
// language cookie, then Accept-Language. The bool reports whether the query
// parameter chose it and should be persisted.
func ResolveTag(r *http.Request) (language.Tag, bool) {
	if v := strings.TrimSpace(r.URL.Query().Get(LangParam)); v != "" {
		if tag, err := language.Parse(v); err == nil {
			return Match(tag), true
		}
	}
	if c, err := r.Cookie(LangCookieName); err == nil {
		if tag, err := language.Parse(c.Value); err == nil {
			return Match(tag), false
		}
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			return Match(tags...), false
		}
	}
	return Supported[0], false
}

// SetLanguageCookie persists the chosen language.
func SetLanguageCookie(w http.ResponseWriter, tag language.Tag) {
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    tag.String(),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}
