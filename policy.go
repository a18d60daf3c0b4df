package clockin

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ClockTime is a wall-clock time of day.
type ClockTime struct {
	Hour, Minute, Second int
}

func ParseClockTime(s string) (ClockTime, error) {
	for _, layout := range []string{time.TimeOnly, "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockTime{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return ClockTime{}, fmt.Errorf("invalid clock time %q: want HH:MM or HH:MM:SS", s)
}

func (c ClockTime) String() string {
	if c.Second != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
	}
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns c on the calendar day of t, in t's location.
func (c ClockTime) On(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, c.Second, 0, t.Location())
}

func (c ClockTime) before(o ClockTime) bool {
	if c.Hour != o.Hour {
		return c.Hour < o.Hour
	}
	if c.Minute != o.Minute {
		return c.Minute < o.Minute
	}
	return c.Second < o.Second
}

// Window is an inclusive daily eligibility interval.
type Window struct {
	Start, End ClockTime
}

func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// Bounds returns the window on the calendar day of t.
func (w Window) Bounds(t time.Time) (start, end time.Time) {
	return w.Start.On(t), w.End.On(t)
}

func (w Window) Contains(t time.Time) bool {
	start, end := w.Bounds(t)
	return !t.Before(start) && !t.After(end)
}

type BreakPolicy struct {
	MaxCount  int
	Allotment time.Duration // zero when the break is not individually time-boxed
	Window    *Window       // nil when the break may start at any time
}

type ShiftPolicy struct {
	Location      *time.Location
	WorkStart     ClockTime
	ShiftDayStart ClockTime
	WarningLead   time.Duration
	Breaks        map[BreakType]BreakPolicy
}

func DefaultShiftPolicy(loc *time.Location) ShiftPolicy {
	if loc == nil {
		loc = time.UTC
	}
	return ShiftPolicy{
		Location:      loc,
		WorkStart:     ClockTime{Hour: 11},
		ShiftDayStart: ClockTime{Hour: 5},
		WarningLead:   time.Minute,
		Breaks: map[BreakType]BreakPolicy{
			BreakToilet: {MaxCount: 6, Allotment: 10 * time.Minute},
			BreakEat: {MaxCount: 1, Window: &Window{
				Start: ClockTime{Hour: 22},
				End:   ClockTime{Hour: 22, Minute: 30},
			}},
			BreakRest: {MaxCount: 1, Window: &Window{
				Start: ClockTime{Hour: 16, Minute: 15},
				End:   ClockTime{Hour: 17, Minute: 45},
			}},
		},
	}
}

func (p ShiftPolicy) Break(t BreakType) (BreakPolicy, bool) {
	bp, ok := p.Breaks[t]
	return bp, ok
}

// Local converts t to the policy timezone.
func (p ShiftPolicy) Local(t time.Time) time.Time {
	if p.Location == nil {
		return t
	}
	return t.In(p.Location)
}

// ShiftDay returns the logical day t belongs to. Times before ShiftDayStart count
// towards the previous calendar day.
func (p ShiftPolicy) ShiftDay(t time.Time) string {
	local := p.Local(t)
	if local.Before(p.ShiftDayStart.On(local)) {
		local = local.AddDate(0, 0, -1)
	}
	return local.Format(time.DateOnly)
}

// LateBy returns how far t is past the official work start, or zero.
func (p ShiftPolicy) LateBy(t time.Time) time.Duration {
	local := p.Local(t).Truncate(time.Second)
	start := p.WorkStart.On(local)
	if !local.After(start) {
		return 0
	}
	return local.Sub(start)
}

type policyFile struct {
	Timezone      string                     `yaml:"timezone"`
	WorkStart     string                     `yaml:"work_start"`
	ShiftDayStart string                     `yaml:"shift_day_start"`
	WarningLead   time.Duration              `yaml:"warning_lead"`
	Breaks        map[string]breakPolicyFile `yaml:"breaks"`
}

type breakPolicyFile struct {
	MaxCount  *int          `yaml:"max_count"`
	Allotment time.Duration `yaml:"allotment"`
	Window    *struct {
		Start string `yaml:"start"`
		End   string `yaml:"end"`
	} `yaml:"window"`
}

// LoadShiftPolicy overlays the YAML policy file at path onto base.
func LoadShiftPolicy(path string, base ShiftPolicy) (ShiftPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ShiftPolicy{}, fmt.Errorf("read policy file: %w", err)
	}
	return ParseShiftPolicy(data, base)
}

func ParseShiftPolicy(data []byte, base ShiftPolicy) (ShiftPolicy, error) {
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return ShiftPolicy{}, fmt.Errorf("parse policy file: %w", err)
	}

	p := base
	p.Breaks = make(map[BreakType]BreakPolicy, len(base.Breaks))
	for t, bp := range base.Breaks {
		p.Breaks[t] = bp
	}

	if f.Timezone != "" {
		loc, err := time.LoadLocation(f.Timezone)
		if err != nil {
			return ShiftPolicy{}, fmt.Errorf("policy timezone: %w", err)
		}
		p.Location = loc
	}
	if f.WorkStart != "" {
		ct, err := ParseClockTime(f.WorkStart)
		if err != nil {
			return ShiftPolicy{}, fmt.Errorf("work_start: %w", err)
		}
		p.WorkStart = ct
	}
	if f.ShiftDayStart != "" {
		ct, err := ParseClockTime(f.ShiftDayStart)
		if err != nil {
			return ShiftPolicy{}, fmt.Errorf("shift_day_start: %w", err)
		}
		p.ShiftDayStart = ct
	}
	if f.WarningLead < 0 {
		return ShiftPolicy{}, fmt.Errorf("warning_lead must not be negative")
	}
	if f.WarningLead > 0 {
		p.WarningLead = f.WarningLead
	}

	for name, bf := range f.Breaks {
		t, err := ParseBreakType(name)
		if err != nil {
			return ShiftPolicy{}, err
		}
		bp := p.Breaks[t]
		if bf.MaxCount != nil {
			if *bf.MaxCount < 0 {
				return ShiftPolicy{}, fmt.Errorf("%s max_count must not be negative", name)
			}
			bp.MaxCount = *bf.MaxCount
		}
		if bf.Allotment != 0 {
			bp.Allotment = bf.Allotment
		}
		if bf.Window != nil {
			start, err := ParseClockTime(bf.Window.Start)
			if err != nil {
				return ShiftPolicy{}, fmt.Errorf("%s window start: %w", name, err)
			}
			end, err := ParseClockTime(bf.Window.End)
			if err != nil {
				return ShiftPolicy{}, fmt.Errorf("%s window end: %w", name, err)
			}
			if end.before(start) {
				return ShiftPolicy{}, fmt.Errorf("%s window ends before it starts", name)
			}
			bp.Window = &Window{Start: start, End: end}
		}
		p.Breaks[t] = bp
	}
	return p, nil
}
