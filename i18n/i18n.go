// Package i18n renders user-facing text in the user's locale.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

var (
	bundle        = mustLoadBundle()
	defaultLocale = "en"
)

type ctxKey struct{}

func mustLoadBundle() *i18n.Bundle {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		panic(fmt.Sprintf("i18n: read locales dir: %v", err))
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			panic(fmt.Sprintf("i18n: read %s: %v", e.Name(), err))
		}
		b.MustParseMessageFileBytes(data, e.Name())
	}
	return b
}

// Init sets the locale used when a context carries none.
func Init(defLocale string) {
	if defLocale != "" {
		defaultLocale = defLocale
	}
	log.Info("i18n ready", "locales", len(bundle.LanguageTags()), "default", defaultLocale)
}

// WithLocale returns a new context carrying the given locale string (e.g. "vi", "en-US").
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, ctxKey{}, locale)
}

func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok && v != "" {
		return v
	}
	return defaultLocale
}

// T translates a message ID using the locale from the context.
func T(ctx context.Context, messageID string, templateData ...map[string]any) string {
	cfg := &i18n.LocalizeConfig{MessageID: messageID}
	if len(templateData) > 0 && templateData[0] != nil {
		cfg.TemplateData = templateData[0]
	}
	return localize(ctx, cfg)
}

// N translates a plural message. Count is available to the template as {{.Count}}.
func N(ctx context.Context, messageID string, count int) string {
	return localize(ctx, &i18n.LocalizeConfig{
		MessageID:    messageID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
}

func localize(ctx context.Context, cfg *i18n.LocalizeConfig) string {
	l := i18n.NewLocalizer(bundle, LocaleFromContext(ctx), defaultLocale)
	msg, err := l.Localize(cfg)
	if err != nil {
		log.Debug("missing translation", "id", cfg.MessageID, "err", err)
		return cfg.MessageID
	}
	return msg
}

// FormatDuration renders d to the second, e.g. "1 hour 5 minutes" or "45 seconds".
func FormatDuration(ctx context.Context, d time.Duration) string {
	if d < 0 {
		d = -d
	}
	d = d.Truncate(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)

	var parts []string
	if h > 0 {
		parts = append(parts, N(ctx, "duration.hours", h))
	}
	if m > 0 {
		parts = append(parts, N(ctx, "duration.minutes", m))
	}
	if s > 0 || len(parts) == 0 {
		parts = append(parts, N(ctx, "duration.seconds", s))
	}
	return strings.Join(parts, " ")
}

// Ordinal renders n as "1st", "2nd" in English and as a plain number elsewhere.
func Ordinal(ctx context.Context, n int) string {
	tag, err := language.Parse(LocaleFromContext(ctx))
	if err == nil {
		if base, _ := tag.Base(); base.String() != "en" {
			return strconv.Itoa(n)
		}
	}
	return humanize.Ordinal(n)
}
