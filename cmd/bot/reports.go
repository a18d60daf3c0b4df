package main

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/benjamonnguyen/clockin-go"
	"github.com/benjamonnguyen/clockin-go/cmd/bot/models"
	"github.com/benjamonnguyen/clockin-go/i18n"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const clockLayout = "15:04"

// Report is the user-facing result of an attendance transition.
type Report interface {
	Render(ctx context.Context) string
}

type WorkStartedReport struct {
	Name       string
	At         time.Time
	Late       time.Duration
	MonitorURL string
}

func (r WorkStartedReport) Render(ctx context.Context) string {
	data := map[string]any{"Name": r.Name, "Time": r.At.Format(clockLayout)}
	var b strings.Builder
	if r.Late > 0 {
		data["Late"] = i18n.FormatDuration(ctx, r.Late)
		b.WriteString(i18n.T(ctx, "start_work.late", data))
	} else {
		b.WriteString(i18n.T(ctx, "start_work.on_time", data))
	}
	if r.MonitorURL != "" {
		b.WriteString("\n")
		b.WriteString(i18n.T(ctx, "start_work.monitor", map[string]any{"URL": r.MonitorURL}))
	}
	return b.String()
}

type BreakStartedReport struct {
	Break  clockin.BreakType
	Number int
	At     time.Time
	Policy clockin.BreakPolicy
}

func (r BreakStartedReport) Render(ctx context.Context) string {
	var b strings.Builder
	b.WriteString(i18n.T(ctx, "break.started", map[string]any{
		"Emoji":   breakEmoji(r.Break),
		"Ordinal": i18n.Ordinal(ctx, r.Number),
		"Break":   breakName(ctx, r.Break),
		"Time":    r.At.Format(clockLayout),
	}))
	switch {
	case r.Policy.Allotment > 0:
		b.WriteString("\n")
		b.WriteString(i18n.T(ctx, "break.allotment", map[string]any{
			"Allotment": i18n.FormatDuration(ctx, r.Policy.Allotment),
		}))
	case r.Policy.Window != nil:
		b.WriteString("\n")
		b.WriteString(i18n.T(ctx, "break.window_end", map[string]any{"End": r.Policy.Window.End.String()}))
	}
	return b.String()
}

type BreakEndedReport struct {
	Break   clockin.BreakType
	Elapsed time.Duration
	// Over is how far the break ran past its allotment or window end.
	Over       time.Duration
	OverWindow bool
}

func (r BreakEndedReport) Render(ctx context.Context) string {
	var b strings.Builder
	b.WriteString(i18n.T(ctx, "break.ended", map[string]any{
		"Elapsed": i18n.FormatDuration(ctx, r.Elapsed),
		"Break":   breakName(ctx, r.Break),
	}))
	b.WriteString("\n")
	switch {
	case r.Over > 0 && r.OverWindow:
		b.WriteString(i18n.T(ctx, "break.over_window", map[string]any{
			"Over":  i18n.FormatDuration(ctx, r.Over),
			"Break": breakName(ctx, r.Break),
		}))
	case r.Over > 0:
		b.WriteString(i18n.T(ctx, "break.over_limit", map[string]any{"Over": i18n.FormatDuration(ctx, r.Over)}))
	default:
		b.WriteString(i18n.T(ctx, "break.on_time"))
	}
	return b.String()
}

type CheckoutPromptReport struct{}

func (CheckoutPromptReport) Render(ctx context.Context) string {
	return i18n.T(ctx, "off_work.prompt")
}

type CheckoutCancelledReport struct{}

func (CheckoutCancelledReport) Render(ctx context.Context) string {
	return i18n.T(ctx, "off_work.cancelled")
}

type ShiftEndedReport struct {
	Name    string
	At      time.Time
	Summary models.ShiftSummary
}

func (r ShiftEndedReport) Render(ctx context.Context) string {
	return i18n.T(ctx, "off_work.done", map[string]any{
		"Name":       r.Name,
		"Time":       r.At.Format(clockLayout),
		"Worked":     i18n.FormatDuration(ctx, r.Summary.Worked),
		"Breaks":     breakTally(ctx, r.Summary.Breaks),
		"TotalBreak": i18n.FormatDuration(ctx, r.Summary.TotalBreak),
	})
}

// AutoCheckoutReport tells the user a session left over from a previous shift was closed.
type AutoCheckoutReport struct {
	ShiftDay string
}

func (r AutoCheckoutReport) Render(ctx context.Context) string {
	return i18n.T(ctx, "off_work.auto", map[string]any{"Day": r.ShiftDay})
}

// PanelReport describes the current state without changing it.
type PanelReport struct {
	State          clockin.AttendanceState
	WorkStartedAt  time.Time
	BreakStartedAt time.Time
	Break          clockin.BreakType
	Breaks         clockin.BreakCounts
}

func (r PanelReport) Render(ctx context.Context) string {
	switch r.State {
	case clockin.StateWorking:
		return i18n.T(ctx, "panel.working", map[string]any{
			"Time":   r.WorkStartedAt.Format(clockLayout),
			"Breaks": breakTally(ctx, r.Breaks),
		})
	case clockin.StateOnBreak:
		return i18n.T(ctx, "panel.on_break", map[string]any{
			"Break": breakName(ctx, r.Break),
			"Time":  r.BreakStartedAt.Format(clockLayout),
		})
	case clockin.StateAwaitingCheckout:
		return i18n.T(ctx, "panel.awaiting")
	default:
		return i18n.T(ctx, "panel.idle")
	}
}

func renderReports(ctx context.Context, reports []Report) string {
	parts := make([]string, 0, len(reports))
	for _, r := range reports {
		parts = append(parts, r.Render(ctx))
	}
	return strings.Join(parts, "\n\n")
}

func renderWarning(ctx context.Context, w Warning) string {
	id := "warning.allotment"
	if !w.WindowEnd.IsZero() {
		id = "warning.window"
	}
	return i18n.T(ctx, id, map[string]any{
		"Break": breakName(ctx, w.Break),
		"Lead":  i18n.FormatDuration(ctx, w.Lead),
	})
}

// renderError returns the user-facing text for a rejected command.
func renderError(ctx context.Context, err error) string {
	var denial *clockin.PolicyDenial
	if errors.As(err, &denial) {
		switch denial.Reason {
		case clockin.QuotaExhausted:
			return i18n.T(ctx, "denial.quota", map[string]any{
				"Max":   denial.Policy.MaxCount,
				"Break": breakName(ctx, denial.Break),
			})
		case clockin.OutsideWindow:
			if w := denial.Policy.Window; w != nil {
				return i18n.T(ctx, "denial.window", map[string]any{
					"Break": capitalize(ctx, breakName(ctx, denial.Break)),
					"Start": w.Start.String(),
					"End":   w.End.String(),
				})
			}
		}
	}

	switch {
	case errors.Is(err, clockin.ErrPolicyDenied):
		return i18n.T(ctx, "denial.unknown")
	case errors.Is(err, clockin.ErrAlreadyStarted):
		return i18n.T(ctx, "err.already_started")
	case errors.Is(err, clockin.ErrNotStarted):
		return i18n.T(ctx, "err.not_started")
	case errors.Is(err, clockin.ErrAlreadyOnBreak):
		return i18n.T(ctx, "err.already_on_break")
	case errors.Is(err, clockin.ErrNotOnBreak):
		return i18n.T(ctx, "err.not_on_break")
	case errors.Is(err, clockin.ErrStillOnBreak):
		return i18n.T(ctx, "err.still_on_break")
	case errors.Is(err, clockin.ErrNoPendingCheckout):
		return i18n.T(ctx, "err.no_pending_checkout")
	case errors.Is(err, clockin.ErrCheckoutPending):
		return i18n.T(ctx, "err.checkout_pending")
	default:
		return i18n.T(ctx, "err.internal")
	}
}

func breakName(ctx context.Context, t clockin.BreakType) string {
	return i18n.T(ctx, "break."+t.String())
}

func breakEmoji(t clockin.BreakType) string {
	switch t {
	case clockin.BreakToilet:
		return "🚽"
	case clockin.BreakEat:
		return "🍔"
	case clockin.BreakRest:
		return "🛌"
	default:
		return "⏸️"
	}
}

// breakTally renders counts as "toilet 2, eat 1".
func breakTally(ctx context.Context, counts clockin.BreakCounts) string {
	var parts []string
	for _, t := range clockin.BreakTypes {
		if n := counts.Get(t); n > 0 {
			parts = append(parts, breakName(ctx, t)+" "+strconv.Itoa(n))
		}
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, ", ")
}

func capitalize(ctx context.Context, s string) string {
	return cases.Title(language.Make(i18n.LocaleFromContext(ctx))).String(s)
}
