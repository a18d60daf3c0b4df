package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjamonnguyen/clockin-go"
)

func TestCommandButtons(t *testing.T) {
	t.Parallel()

	rows := CommandButtons(clockin.StateWorking)
	require.Len(t, rows, 1)
	row, ok := rows[0].(discordgo.ActionsRow)
	require.True(t, ok)
	require.Len(t, row.Components, 4)

	var labels, ids []string
	for _, c := range row.Components {
		b := c.(discordgo.Button)
		labels = append(labels, b.Label)
		ids = append(ids, b.CustomID)
	}
	assert.Equal(t, []string{"🚽 Toilet", "🍔 Eat", "🛌 Rest", "👋 Off Work"}, labels)
	assert.Equal(t, []string{"clockin:toilet", "clockin:eat", "clockin:rest", "clockin:off_work"}, ids)
	assert.Equal(t, discordgo.DangerButton, row.Components[3].(discordgo.Button).Style)

	row = CommandButtons(clockin.StateAwaitingCheckout)[0].(discordgo.ActionsRow)
	assert.Equal(t, discordgo.SuccessButton, row.Components[0].(discordgo.Button).Style)
	assert.Equal(t, discordgo.DangerButton, row.Components[1].(discordgo.Button).Style)
}

func TestOutcomeMessage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("reports", func(t *testing.T) {
		t.Parallel()
		msg := OutcomeMessage(ctx, Outcome{
			State:   clockin.StateAwaitingCheckout,
			Locale:  "en",
			Reports: []Report{CheckoutPromptReport{}},
		}, nil)
		require.Len(t, msg.Embeds, 1)
		assert.Equal(t, "Are you sure you want to clock out?", msg.Embeds[0].Description)
		assert.Equal(t, int(ColorOrange), msg.Embeds[0].Color)
		assert.False(t, msg.Ephemeral)
	})

	t.Run("denial", func(t *testing.T) {
		t.Parallel()
		bp, _ := clockin.DefaultShiftPolicy(time.UTC).Break(clockin.BreakEat)
		msg := OutcomeMessage(ctx, Outcome{State: clockin.StateWorking, Locale: "en"},
			&clockin.PolicyDenial{Break: clockin.BreakEat, Reason: clockin.QuotaExhausted, Policy: bp})
		assert.Equal(t, "🚫 You have used all 1 eat breaks for this shift.", msg.Embeds[0].Description)
		assert.Equal(t, int(ColorRed), msg.Embeds[0].Color)
		assert.Len(t, msg.Components[0].(discordgo.ActionsRow).Components, 4)
	})

	t.Run("reports then error", func(t *testing.T) {
		t.Parallel()
		msg := OutcomeMessage(ctx, Outcome{
			State:   clockin.StateWorking,
			Locale:  "en",
			Reports: []Report{AutoCheckoutReport{ShiftDay: "2025-03-09"}},
		}, clockin.ErrAlreadyStarted)
		assert.Equal(t,
			"Your session from 2025-03-09 was closed automatically.\n\nYou have already started work.",
			msg.Embeds[0].Description,
		)
		assert.Equal(t, int(ColorGreen), msg.Embeds[0].Color)
	})
}

// mockDirectMessenger is a mock implementation of directMessenger
type mockDirectMessenger struct {
	sendDirectMessageFunc func(ctx context.Context, uid, content string) error
}

func (m *mockDirectMessenger) SendDirectMessage(ctx context.Context, uid, content string) error {
	return m.sendDirectMessageFunc(ctx, uid, content)
}

func TestDMNotifier(t *testing.T) {
	t.Parallel()

	var gotUID, gotContent string
	n := dmNotifier{dms: &mockDirectMessenger{
		sendDirectMessageFunc: func(_ context.Context, uid, content string) error {
			gotUID, gotContent = uid, content
			return nil
		},
	}}
	require.NoError(t, n.NotifyWarning(context.Background(), Warning{
		UserID: "42",
		Locale: "en",
		Break:  clockin.BreakToilet,
		Lead:   time.Minute,
	}))
	assert.Equal(t, "42", gotUID)
	assert.Equal(t, "⏳ Your toilet break ends in 1 minute. Please head back to your seat.", gotContent)

	failing := dmNotifier{dms: &mockDirectMessenger{
		sendDirectMessageFunc: func(context.Context, string, string) error {
			return clockin.ErrTransportFailure
		},
	}}
	err := failing.NotifyWarning(context.Background(), Warning{UserID: "42"})
	assert.True(t, errors.Is(err, clockin.ErrTransportFailure))
}

func TestActivityCSV(t *testing.T) {
	t.Parallel()
	hcm, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)
	at := time.Date(2025, 3, 10, 4, 0, 0, 0, time.UTC)

	// newest first, as returned by the repos
	records := []clockin.ExistingActivityRecord{
		{ActivityRecord: clockin.ActivityRecord{UserID: "42", Username: "alice", Kind: "end_toilet", Detail: "Duration: 5 minutes", At: at.Add(5 * time.Minute)}},
		{ActivityRecord: clockin.ActivityRecord{UserID: "42", Username: "alice", Kind: "start_toilet", Detail: "Break #1, late", At: at}},
	}
	body, err := activityCSV(records, hcm)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"timestamp", "user_id", "username", "action", "details"},
		{"2025-03-10 11:00:00", "42", "alice", "start_toilet", "Break #1, late"},
		{"2025-03-10 11:05:00", "42", "alice", "end_toilet", "Duration: 5 minutes"},
	}, rows)
}
