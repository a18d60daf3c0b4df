// Package discordgo provides Discord API adapters using package github.com/bwmarrin/discordgo
package discordgo

import (
	"context"
	"fmt"

	"github.com/benjamonnguyen/clockin-go"
	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"
)

type discordgoAdapter struct {
	cl *discordgo.Session
	l  log.Logger
}

func NewDiscordAdapter(cl *discordgo.Session, logger log.Logger) *discordgoAdapter {
	return &discordgoAdapter{
		cl: cl,
		l:  logger,
	}
}

// SendDirectMessage opens (or reuses) the DM channel with uid and posts content to it.
func (w *discordgoAdapter) SendDirectMessage(ctx context.Context, uid, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ch, err := w.cl.UserChannelCreate(uid, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: open DM channel for %s: %w", clockin.ErrTransportFailure, uid, err)
	}
	if _, err := w.cl.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%w: send DM to %s: %w", clockin.ErrTransportFailure, uid, err)
	}
	w.l.Debug("sent direct message", "uid", uid, "cid", ch.ID)
	return nil
}

// Username returns the global display name for uid, falling back to the account name.
func (w *discordgoAdapter) Username(ctx context.Context, uid string) (string, error) {
	u, err := w.cl.User(uid, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("%w: get user %s: %w", clockin.ErrTransportFailure, uid, err)
	}
	return DisplayName(u), nil
}

func DisplayName(u *discordgo.User) string {
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
