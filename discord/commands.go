package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

const helpText = "Paste an FFLogs report link (https://www.fflogs.com/reports/...) in any channel " +
	"and I will post a summary of the encounters, best pulls and wipe counts. " +
	"If the log is still being written I keep the summary updated automatically. " +
	"Posting a new link replaces the old summary; any other message stops the updates."

var commands = []*discordgo.ApplicationCommand{
	{Name: "help", Description: "How to use the report tracker"},
}

func (b *Bot) registerCommands() error {
	appID := b.session.State.User.ID
	for _, cmd := range commands {
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if i.ApplicationCommandData().Name != "help" {
		return
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: helpText,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Warn("help interaction response failed", slog.Any("err", err))
	}
}
