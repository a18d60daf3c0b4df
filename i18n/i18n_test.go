package i18n

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestT(t *testing.T) {
	t.Parallel()

	en := WithLocale(context.Background(), "en-US")
	vi := WithLocale(context.Background(), "vi")

	assert.Equal(t, "You are not on a break.", T(en, "err.not_on_break"))
	assert.Equal(t, "Bạn không trong giờ nghỉ.", T(vi, "err.not_on_break"))
	assert.Equal(t, "Please be back before 22:30.", T(en, "break.window_end", map[string]any{"End": "22:30"}))

	// unknown locale falls back to the default
	assert.Equal(t, "You are not on a break.", T(WithLocale(context.Background(), "ja"), "err.not_on_break"))
	// unknown id is returned as-is
	assert.Equal(t, "no.such.message", T(en, "no.such.message"))
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	en := WithLocale(context.Background(), "en")
	vi := WithLocale(context.Background(), "vi")

	tests := []struct {
		d    time.Duration
		en   string
		vi   string
	}{
		{0, "0 seconds", "0 giây"},
		{45 * time.Second, "45 seconds", "45 giây"},
		{time.Second, "1 second", "1 giây"},
		{time.Minute, "1 minute", "1 phút"},
		{5*time.Minute + 1500*time.Millisecond, "5 minutes 1 second", "5 phút 1 giây"},
		{time.Hour + 5*time.Minute, "1 hour 5 minutes", "1 giờ 5 phút"},
		{9*time.Hour + 2*time.Second, "9 hours 2 seconds", "9 giờ 2 giây"},
	}
	for _, tt := range tests {
		t.Run(tt.d.String(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.en, FormatDuration(en, tt.d))
			assert.Equal(t, tt.vi, FormatDuration(vi, tt.d))
		})
	}
}

func TestOrdinal(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1st", Ordinal(WithLocale(context.Background(), "en-GB"), 1))
	assert.Equal(t, "6th", Ordinal(WithLocale(context.Background(), "en"), 6))
	assert.Equal(t, "2", Ordinal(WithLocale(context.Background(), "vi"), 2))
}
