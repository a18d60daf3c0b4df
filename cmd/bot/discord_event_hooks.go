package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"time"

	"github.com/benjamonnguyen/clockin-go"
	clockindg "github.com/benjamonnguyen/clockin-go/discordgo"
	"github.com/benjamonnguyen/clockin-go/i18n"
	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"
)

const (
	defaultGetLogLimit = 500
	csvTimeLayout      = "2006-01-02 15:04:05"
)

func interactionUser(it *discordgo.Interaction) User {
	u := GetUser(it)
	if u == nil {
		return User{}
	}
	return User{
		ID:     u.ID,
		Name:   clockindg.DisplayName(u),
		Locale: string(it.Locale),
	}
}

func logRejection(u User, err error) {
	if errors.Is(err, clockin.ErrInvalidTransition) || errors.Is(err, clockin.ErrPolicyDenied) {
		log.Debug("rejected attendance command", "uid", u.ID, "err", err)
		return
	}
	log.Error("failed attendance command", "uid", u.ID, "err", err)
}

// ShowPanel answers /clockin with the user's current state and its options.
func ShowPanel(ctx context.Context, mgr AttendanceManager, dm DiscordMessenger, m *discordgo.InteractionCreate) bool {
	if m.Type != discordgo.InteractionApplicationCommand {
		return false
	}
	if m.ApplicationCommandData().Name != clockin.AttendanceCommand.Name {
		return false
	}

	u := interactionUser(m.Interaction)
	msg := OutcomeMessage(ctx, mgr.Panel(ctx, u), nil)
	// keep the panel private when invoked in a server channel
	msg.Ephemeral = m.GuildID != ""
	if err := dm.Respond(m.Interaction, msg); err != nil {
		log.Error("failed to show panel", "uid", u.ID, "err", err)
	}
	return true
}

// HandleCommandButton applies a button press and replaces the panel with the result.
func HandleCommandButton(ctx context.Context, mgr AttendanceManager, dm DiscordMessenger, m *discordgo.InteractionCreate) bool {
	if m.Type != discordgo.InteractionMessageComponent {
		return false
	}
	cmd, ok := clockin.ParseCustomID(m.MessageComponentData().CustomID)
	if !ok {
		return false
	}

	u := interactionUser(m.Interaction)
	out, err := mgr.Dispatch(ctx, u, cmd)
	if err != nil {
		logRejection(u, err)
	}
	if err := dm.Update(m.Interaction, OutcomeMessage(ctx, out, err)); err != nil {
		log.Error("failed to update panel", "uid", u.ID, "err", err)
	}
	log.Info("handled attendance button", "uid", u.ID, "action", cmd.Action, "state", out.State)
	return true
}

// HandleDirectMessage treats a DM whose text is a command label as that command.
// Any other text gets the panel back.
func HandleDirectMessage(ctx context.Context, mgr AttendanceManager, dm DiscordMessenger, s *discordgo.Session, m *discordgo.MessageCreate) bool {
	if m.Author == nil || m.Author.Bot || m.GuildID != "" {
		return false
	}
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return false
	}

	u := User{ID: m.Author.ID, Name: clockindg.DisplayName(m.Author)}
	var out Outcome
	var err error
	if cmd, ok := clockin.ParseLabel(m.Content); ok {
		out, err = mgr.Dispatch(ctx, u, cmd)
		if err != nil {
			logRejection(u, err)
		}
	} else {
		out = mgr.Panel(ctx, u)
	}

	if _, err := dm.Send(m.ChannelID, OutcomeMessage(ctx, out, err)); err != nil {
		log.Error("failed to reply to direct message", "uid", u.ID, "cid", m.ChannelID, "err", err)
	}
	return true
}

// ExportActivityLog answers /getlog with the latest activity entries as a CSV attachment.
func ExportActivityLog(
	ctx context.Context,
	isAdmin func(userID string) bool,
	recent func(ctx context.Context, limit int) ([]clockin.ExistingActivityRecord, error),
	loc *time.Location,
	dm DiscordMessenger,
	m *discordgo.InteractionCreate,
) bool {
	if m.Type != discordgo.InteractionApplicationCommand {
		return false
	}
	data := m.ApplicationCommandData()
	if data.Name != clockin.GetLogCommand.Name {
		return false
	}

	u := interactionUser(m.Interaction)
	lctx := i18n.WithLocale(ctx, u.Locale)
	if !isAdmin(u.ID) {
		if err := dm.Respond(m.Interaction, Message{Content: i18n.T(lctx, "getlog.forbidden"), Ephemeral: true}); err != nil {
			log.Error(err)
		}
		log.Warn("rejected activity export", "uid", u.ID)
		return true
	}

	limit := defaultGetLogLimit
	for _, opt := range data.Options {
		if opt.Name == clockin.GetLogLimitOption {
			if val, ok := opt.Value.(float64); ok && val > 0 {
				limit = int(val)
			}
		}
	}

	followup, err := dm.DeferMessageCreate(m.Interaction, true)
	if err != nil {
		log.Error(err)
		return true
	}

	records, err := recent(ctx, limit)
	if err != nil {
		log.Error("failed to list activity", "limit", limit, "err", err)
		if _, err := followup(Message{Content: i18n.T(lctx, "err.internal")}); err != nil {
			log.Error(err)
		}
		return true
	}
	if len(records) == 0 {
		if _, err := followup(Message{Content: i18n.T(lctx, "getlog.empty")}); err != nil {
			log.Error(err)
		}
		return true
	}

	body, err := activityCSV(records, loc)
	if err != nil {
		log.Error("failed to encode activity", "err", err)
		if _, err := followup(Message{Content: i18n.T(lctx, "err.internal")}); err != nil {
			log.Error(err)
		}
		return true
	}
	_, err = followup(Message{
		Content: i18n.T(lctx, "getlog.exported", map[string]any{"Count": len(records)}),
		Files: []*discordgo.File{{
			Name:        "activity_log.csv",
			ContentType: "text/csv",
			Reader:      bytes.NewReader(body),
		}},
	})
	if err != nil {
		log.Error("failed to send activity export", "err", err)
		return true
	}
	log.Info("exported activity", "uid", u.ID, "count", len(records))
	return true
}

// activityCSV encodes records oldest first.
func activityCSV(records []clockin.ExistingActivityRecord, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"timestamp", "user_id", "username", "action", "details"}); err != nil {
		return nil, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if err := w.Write([]string{
			r.At.In(loc).Format(csvTimeLayout),
			r.UserID,
			r.Username,
			string(r.Kind),
			r.Detail,
		}); err != nil {
			return nil, fmt.Errorf("encode activity %s: %w", r.ID, err)
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
