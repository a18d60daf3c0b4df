package main

import (
	"context"
	"errors"

	"github.com/benjamonnguyen/clockin-go"
	"github.com/benjamonnguyen/clockin-go/i18n"
	"github.com/bwmarrin/discordgo"
)

// Message is a transport-neutral reply rendered into a discord message.
type Message struct {
	Content    string
	Embeds     []*discordgo.MessageEmbed
	Components []discordgo.MessageComponent
	Files      []*discordgo.File
	Ephemeral  bool
}

func (msg Message) flags() discordgo.MessageFlags {
	if msg.Ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

type DiscordMessenger interface {
	Respond(it *discordgo.Interaction, msg Message) error
	// Update replaces the message the interaction's component is attached to.
	Update(it *discordgo.Interaction, msg Message) error
	Send(channelID string, msg Message) (*discordgo.Message, error)
	DeferMessageCreate(it *discordgo.Interaction, ephemeral bool) (followup, error)
}

func NewDiscordMessenger(client *discordgo.Session) DiscordMessenger {
	return &messenger{
		client: client,
	}
}

type messenger struct {
	client *discordgo.Session
}

func (m *messenger) Respond(it *discordgo.Interaction, msg Message) error {
	return m.client.InteractionRespond(it, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    msg.Content,
			Embeds:     msg.Embeds,
			Components: msg.Components,
			Files:      msg.Files,
			Flags:      msg.flags(),
		},
	})
}

func (m *messenger) Update(it *discordgo.Interaction, msg Message) error {
	return m.client.InteractionRespond(it, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    msg.Content,
			Embeds:     msg.Embeds,
			Components: msg.Components,
		},
	})
}

func (m *messenger) Send(channelID string, msg Message) (*discordgo.Message, error) {
	return m.client.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    msg.Content,
		Embeds:     msg.Embeds,
		Components: msg.Components,
		Files:      msg.Files,
	})
}

type followup func(msg Message) (*discordgo.Message, error)

func (m *messenger) DeferMessageCreate(it *discordgo.Interaction, ephemeral bool) (followup, error) {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	if err := m.client.InteractionRespond(it, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	}); err != nil {
		return nil, err
	}
	return func(msg Message) (*discordgo.Message, error) {
		return m.client.FollowupMessageCreate(it, true, &discordgo.WebhookParams{
			Content:    msg.Content,
			Embeds:     msg.Embeds,
			Components: msg.Components,
			Files:      msg.Files,
			Flags:      flags,
		})
	}, nil
}

func GetUser(m *discordgo.Interaction) *discordgo.User {
	if m.Member != nil {
		return m.Member.User
	}
	return m.User
}

type Color int

const (
	ColorGreen     Color = 0x57f287
	ColorYellow    Color = 0xfee75c
	ColorOrange    Color = 0xe67e22
	ColorRed       Color = 0xed4245
	ColorLightGrey Color = 0xbcc0c0
	ColorBlurple   Color = 0x5865f2
)

func (c Color) ToInt() int {
	return int(c)
}

func stateColor(s clockin.AttendanceState) Color {
	switch s {
	case clockin.StateWorking:
		return ColorGreen
	case clockin.StateOnBreak:
		return ColorYellow
	case clockin.StateAwaitingCheckout:
		return ColorOrange
	default:
		return ColorLightGrey
	}
}

func buttonStyle(cmd clockin.Command) discordgo.ButtonStyle {
	switch cmd.Action {
	case clockin.ActionStartWork, clockin.ActionEndBreak:
		return discordgo.PrimaryButton
	case clockin.ActionOffWork, clockin.ActionCancelOffWork:
		return discordgo.DangerButton
	case clockin.ActionConfirmOffWork:
		return discordgo.SuccessButton
	default:
		return discordgo.SecondaryButton
	}
}

// CommandButtons renders the reply options for state s as one action row.
func CommandButtons(s clockin.AttendanceState) []discordgo.MessageComponent {
	cmds := clockin.CommandsFor(s)
	buttons := make([]discordgo.MessageComponent, 0, len(cmds))
	for _, cmd := range cmds {
		buttons = append(buttons, discordgo.Button{
			Label:    cmd.Label(),
			Style:    buttonStyle(cmd),
			CustomID: cmd.CustomID(),
		})
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: buttons},
	}
}

// OutcomeMessage renders the result of a command. err, if not nil, is shown
// after whatever the command reported.
func OutcomeMessage(ctx context.Context, out Outcome, err error) Message {
	ctx = i18n.WithLocale(ctx, out.Locale)
	desc := renderReports(ctx, out.Reports)
	color := stateColor(out.State)
	if err != nil {
		if desc != "" {
			desc += "\n\n"
		}
		desc += renderError(ctx, err)
		if errors.Is(err, clockin.ErrPolicyDenied) {
			color = ColorRed
		}
	}
	return Message{
		Embeds: []*discordgo.MessageEmbed{{
			Description: desc,
			Color:       color.ToInt(),
		}},
		Components: CommandButtons(out.State),
	}
}

type directMessenger interface {
	SendDirectMessage(ctx context.Context, uid, content string) error
}

// dmNotifier delivers break warnings as direct messages.
type dmNotifier struct {
	dms directMessenger
}

func (n dmNotifier) NotifyWarning(ctx context.Context, w Warning) error {
	ctx = i18n.WithLocale(ctx, w.Locale)
	return n.dms.SendDirectMessage(ctx, w.UserID, renderWarning(ctx, w))
}
