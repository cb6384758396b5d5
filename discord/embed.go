package discord

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/lheald/raidwatch/report"
)

const (
	killColor = 0x95ed5e
	wipeColor = 0xd8532b

	thumbnailURL = "https://xivapi.com/img-misc/chat_messengericon_raids.png"
	timeLayout   = "02/01/2006 15:04"

	refreshFooter = "Auto-refreshing while the log is live"
	frozenFooter  = "No longer updating"

	// Discord caps embeds at 25 fields; each encounter takes three.
	maxEmbedFields = 25
)

// renderEmbed turns a synthesized report into a Discord embed.
func renderEmbed(rep *report.Report, reportURL string, autoRefresh bool) *discordgo.MessageEmbed {
	title := rep.Title
	if title == "" {
		title = "Report"
	}
	color := wipeColor
	if rep.HasKill() {
		color = killColor
	}

	embed := &discordgo.MessageEmbed{
		Title:     title,
		URL:       reportURL,
		Color:     color,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: thumbnailURL},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Start", Value: rep.StartTime.Format(timeLayout), Inline: true},
			{Name: "End", Value: rep.EndTime.Format(timeLayout), Inline: true},
		},
	}
	if owner := rep.OwnerLabel(); owner != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{Name: owner}
	}
	if autoRefresh {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: refreshFooter}
	}

	if len(rep.EncounterOrder) == 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "No encounter detected yet", Value: "Come back later!",
		})
		return embed
	}

	for _, id := range rep.EncounterOrder {
		if len(embed.Fields)+3 > maxEmbedFields {
			break
		}
		enc := rep.Encounters[id]
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: enc.Name, Value: "​"},
			&discordgo.MessageEmbedField{Name: "Best pull", Value: bestPullLine(enc, rep.BestPullRankings[id]), Inline: true},
			&discordgo.MessageEmbedField{Name: "Wipes", Value: fmt.Sprintf("%d", enc.Wipes()), Inline: true},
		)
	}
	return embed
}

// bestPullLine summarizes an encounter's best pull, with the speed
// percentile when the ranking is known.
func bestPullLine(enc *report.Encounter, ranking report.BestPullRanking) string {
	best := enc.BestPull
	phase := ""
	if best.LastPhase != 0 {
		phase = fmt.Sprintf("P%d ", best.LastPhase)
	}
	var outcome string
	if best.Kill {
		kills := enc.Kills()
		plural := ""
		if kills > 1 {
			plural = "s"
		}
		outcome = fmt.Sprintf("%d kill%s", kills, plural)
	} else {
		outcome = fmt.Sprintf("%.1f%%", best.BossPercentage)
	}
	line := fmt.Sprintf("**%d.** %s - %s%s", best.KillOrWipeNumber, formatDuration(best.Duration), phase, outcome)
	if ranking.SpeedPercentile != nil {
		line += fmt.Sprintf(" (speed %.0f%%)", *ranking.SpeedPercentile)
	}
	return line
}

func formatDuration(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
