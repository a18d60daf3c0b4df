package clockin

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	GetLogLimitOption = "limit"
	customIDPrefix    = "clockin:"
)

func float64Ptr(f float64) *float64 {
	return &f
}

var adminPermissions int64 = discordgo.PermissionAdministrator

var AttendanceCommand = discordgo.ApplicationCommand{
	Name:        "clockin",
	Description: "show your attendance panel",
}

var GetLogCommand = discordgo.ApplicationCommand{
	Name:                     "getlog",
	Description:              "export recent attendance activity (admins only)",
	DefaultMemberPermissions: &adminPermissions,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        GetLogLimitOption,
			Description: "number of entries (Default: 500)",
			MinValue:    float64Ptr(1),
			MaxValue:    5000,
		},
	},
}

// Command is a user request addressed to the attendance state machine.
type Command struct {
	Action Action
	Break  BreakType
}

var (
	StartWorkCommand = Command{Action: ActionStartWork}
	OffWorkCommand   = Command{Action: ActionOffWork}
	ToiletCommand    = Command{Action: ActionStartBreak, Break: BreakToilet}
	EatCommand       = Command{Action: ActionStartBreak, Break: BreakEat}
	RestCommand      = Command{Action: ActionStartBreak, Break: BreakRest}
	BackToSeat       = Command{Action: ActionEndBreak}
	ConfirmOffWork   = Command{Action: ActionConfirmOffWork}
	CancelOffWork    = Command{Action: ActionCancelOffWork}
)

var commandLabels = []struct {
	cmd   Command
	label string
	id    string
}{
	{StartWorkCommand, "🚀 Start Work", "start_work"},
	{OffWorkCommand, "👋 Off Work", "off_work"},
	{ToiletCommand, "🚽 Toilet", "toilet"},
	{EatCommand, "🍔 Eat", "eat"},
	{RestCommand, "🛌 Rest", "rest"},
	{BackToSeat, "🏃 Back to Seat", "back_to_seat"},
	{ConfirmOffWork, "✅ Yes", "confirm"},
	{CancelOffWork, "❌ No", "cancel"},
}

func (c Command) Label() string {
	for _, l := range commandLabels {
		if l.cmd == c {
			return l.label
		}
	}
	return ""
}

func (c Command) CustomID() string {
	for _, l := range commandLabels {
		if l.cmd == c {
			return customIDPrefix + l.id
		}
	}
	return ""
}

// ParseLabel matches the literal text of a reply option.
func ParseLabel(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	for _, l := range commandLabels {
		if l.label == text {
			return l.cmd, true
		}
	}
	return Command{}, false
}

func ParseCustomID(customID string) (Command, bool) {
	id, ok := strings.CutPrefix(customID, customIDPrefix)
	if !ok {
		return Command{}, false
	}
	for _, l := range commandLabels {
		if l.id == id {
			return l.cmd, true
		}
	}
	return Command{}, false
}

// CommandsFor returns the reply options presented in state s.
func CommandsFor(s AttendanceState) []Command {
	switch s {
	case StateWorking:
		return []Command{ToiletCommand, EatCommand, RestCommand, OffWorkCommand}
	case StateOnBreak:
		return []Command{BackToSeat}
	case StateAwaitingCheckout:
		return []Command{ConfirmOffWork, CancelOffWork}
	default:
		return []Command{StartWorkCommand}
	}
}
