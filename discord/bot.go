// Package discord adapts the Discord gateway for the tracker: it extracts
// report references from messages, renders report embeds, and implements the
// message operations the scheduler needs (send/edit/freeze/delete/notify).
package discord

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"github.com/lheald/raidwatch/report"
	"github.com/lheald/raidwatch/track"
)

var reportPattern = regexp.MustCompile(`(https://www\.fflogs\.com/reports/([A-Za-z0-9]+))#?`)

// Tracker is the scheduler surface the bot feeds.
type Tracker interface {
	HandleReportReference(ctx context.Context, ref track.ReportRef)
	HandleUnrelatedMessage(originID, channelID string)
}

// Bot wraps a Discord session and wires message events into the tracker.
type Bot struct {
	session   *discordgo.Session
	tracker   Tracker
	ctx       context.Context
	connected atomic.Bool
}

// New builds a Bot for the given bot token. Open must be called before use.
func New(token string) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	return &Bot{session: s}, nil
}

// AttachTracker sets the tracker; must happen before Open.
func (b *Bot) AttachTracker(t Tracker) { b.tracker = t }

// Open connects to the gateway, sets presence, and registers the message
// handler and slash commands. The session closes when ctx is cancelled.
func (b *Bot) Open(ctx context.Context) error {
	b.ctx = ctx
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)
	if err := b.session.Open(); err != nil {
		return err
	}
	b.connected.Store(true)
	if err := b.registerCommands(); err != nil {
		slog.Warn("slash command registration failed", slog.Any("err", err))
	}
	go func() {
		<-ctx.Done()
		b.connected.Store(false)
		if err := b.session.Close(); err != nil {
			slog.Error("discord session close error", slog.Any("err", err))
		}
	}()
	return nil
}

// Connected reports whether the gateway session is open.
func (b *Bot) Connected() bool { return b.connected.Load() }

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	slog.Info("logged in", slog.String("user", r.User.Username))
	err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{{Name: "greeding that GCD", Type: discordgo.ActivityTypeCompeting}},
	})
	if err != nil {
		slog.Warn("failed to set presence", slog.Any("err", err))
	}
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}
	if m.GuildID == "" {
		// DMs are not tracked; origins are guilds.
		return
	}

	url, code, ok := extractReportRef(m.Content, m.Embeds)
	if !ok {
		// A message with no report link in a tracked channel means the
		// conversation moved on.
		b.tracker.HandleUnrelatedMessage(m.GuildID, m.ChannelID)
		return
	}

	ref := track.ReportRef{
		OriginID:  m.GuildID,
		Code:      code,
		URL:       url,
		ChannelID: m.ChannelID,
	}
	// Synthesis blocks on network I/O; keep the gateway handler snappy.
	go b.tracker.HandleReportReference(b.ctx, ref)
}

// extractReportRef pulls a report url/code out of the message content, or
// out of the first embed's URL when the content has none.
func extractReportRef(content string, embeds []*discordgo.MessageEmbed) (url, code string, ok bool) {
	if m := reportPattern.FindStringSubmatch(content); m != nil {
		return m[1], m[2], true
	}
	if len(embeds) > 0 && embeds[0].URL != "" {
		if m := reportPattern.FindStringSubmatch(embeds[0].URL); m != nil {
			return m[1], m[2], true
		}
	}
	return "", "", false
}

// Compile-time check: the bot is the scheduler's messenger.
var _ track.Messenger = (*Bot)(nil)

// Send posts a report embed with notifications suppressed.
func (b *Bot) Send(ctx context.Context, channelID string, rep *report.Report, ref track.ReportRef, autoRefresh bool) (string, error) {
	msg, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{renderEmbed(rep, ref.URL, autoRefresh)},
		Flags:  discordgo.MessageFlagsSuppressNotifications,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", mapRESTError(err)
	}
	return msg.ID, nil
}

// Edit replaces a previously sent report embed.
func (b *Bot) Edit(ctx context.Context, channelID, messageID string, rep *report.Report, ref track.ReportRef, autoRefresh bool) error {
	embeds := []*discordgo.MessageEmbed{renderEmbed(rep, ref.URL, autoRefresh)}
	_, err := b.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel: channelID,
		ID:      messageID,
		Embeds:  &embeds,
	}, discordgo.WithContext(ctx))
	return mapRESTError(err)
}

// Freeze marks a report message as no longer updating.
func (b *Bot) Freeze(ctx context.Context, channelID, messageID string) error {
	msg, err := b.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return mapRESTError(err)
	}
	if len(msg.Embeds) == 0 {
		return nil
	}
	embeds := msg.Embeds
	embeds[0].Footer = &discordgo.MessageEmbedFooter{Text: frozenFooter}
	_, err = b.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel: channelID,
		ID:      messageID,
		Embeds:  &embeds,
	}, discordgo.WithContext(ctx))
	return mapRESTError(err)
}

// Delete removes a report message.
func (b *Bot) Delete(ctx context.Context, channelID, messageID string) error {
	return mapRESTError(b.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

// Notify sends a plain text notice to a channel.
func (b *Bot) Notify(ctx context.Context, channelID, text string) error {
	_, err := b.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	return mapRESTError(err)
}

// mapRESTError converts Discord "target no longer exists" REST errors into
// track.ErrRenderTargetGone so the scheduler evicts instead of retrying.
func mapRESTError(err error) error {
	if err == nil {
		return nil
	}
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Message != nil {
		switch rerr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeMissingAccess:
			return errors.Join(track.ErrRenderTargetGone, err)
		}
	}
	return err
}
