// Package notify turns one resolved project update into styled Discord
// embeds for every guild channel tracking that project.
package notify

import (
	"time"

	"github.com/DrexHD/discord-bot/db"
	"github.com/DrexHD/discord-bot/format"
	"github.com/DrexHD/discord-bot/platforms"
	"github.com/bwmarrin/discordgo"
	"github.com/lomik/zapwriter"
	"go.uber.org/zap"
)

// ChatClient is the slice of the Discord session the notifier needs:
// state-cache lookups and a raw send.
type ChatClient interface {
	Guild(guildID string) (*discordgo.Guild, error)
	GuildChannel(guildID, channelID string) (*discordgo.Channel, error)
	Send(channelID string, msg *discordgo.MessageSend) error
}

type Notifier struct {
	db      db.Database
	sources map[string]platforms.Source
	chat    ChatClient

	logger *zap.Logger
}

func NewNotifier(database db.Database, sources map[string]platforms.Source) *Notifier {
	return &Notifier{
		db:      database,
		sources: sources,
		logger:  zapwriter.Logger("notify"),
	}
}

// AttachChat wires in the chat client. The Discord endpoint is created
// after the notifier, so this cannot happen in NewNotifier.
func (n *Notifier) AttachChat(chat ChatClient) {
	n.chat = chat
}

// SendUpdateEmbed resolves the newest version out of the fetched
// project record and fans one message out to every destination
// tracking the project. The version is resolved exactly once, all
// destinations see the same data. Per-destination failures are logged
// and skipped, they never abort the remaining destinations.
func (n *Notifier) SendUpdateEmbed(project *db.TrackedProject, rec platforms.Record) {
	logger := n.logger.With(
		zap.String("platform", project.Platform),
		zap.String("project_id", project.ProjectID),
	)

	source, ok := n.sources[project.Platform]
	if !ok {
		logger.Warn("unsupported platform")
		return
	}

	version := source.LatestVersion(rec)
	if version == nil {
		return
	}

	if n.chat == nil {
		logger.Warn("no chat client attached")
		return
	}

	destinations, err := n.db.FindDestinations(project.Platform, project.ProjectID)
	if err != nil {
		logger.Error("error querying destinations",
			zap.Error(err),
		)
		return
	}

	for _, dst := range destinations {
		_, err := n.chat.Guild(dst.GuildID)
		if err != nil {
			logger.Warn("guild not found in cache, skipping destination",
				zap.String("guild_id", dst.GuildID),
				zap.Error(err),
			)
			continue
		}

		channel, err := n.chat.GuildChannel(dst.GuildID, dst.ChannelID)
		if err != nil {
			logger.Warn("channel not found in guild, skipping destination",
				zap.String("guild_id", dst.GuildID),
				zap.String("channel_id", dst.ChannelID),
				zap.Error(err),
			)
			continue
		}

		settings, err := n.db.GetGuildSettings(dst.GuildID)
		if err != nil {
			logger.Error("error querying guild settings",
				zap.String("guild_id", dst.GuildID),
				zap.Error(err),
			)
			continue
		}
		if settings == nil {
			settings = &db.GuildSettings{
				GuildID:            dst.GuildID,
				NotificationStyle:  db.DefaultNotificationStyle,
				ChangelogMaxLength: db.DefaultChangelogMaxLength,
			}
		}

		msg := BuildUpdateMessage(version, project.Name, project.Platform, settings)
		err = n.chat.Send(channel.ID, msg)
		if err != nil {
			logger.Error("error sending update message",
				zap.String("guild_id", dst.GuildID),
				zap.String("channel_id", dst.ChannelID),
				zap.Error(err),
			)
		}
	}
}

// BuildUpdateMessage renders one update notification in the style the
// guild asked for.
func BuildUpdateMessage(version *platforms.VersionInfo, projectName, platform string, settings *db.GuildSettings) *discordgo.MessageSend {
	if settings.NotificationStyle == db.NotificationStyleCompact {
		return compactMessage(version, projectName, platform)
	}
	return fullMessage(version, projectName, platform, settings.ChangelogMaxLength)
}

func compactMessage(version *platforms.VersionInfo, projectName, platform string) *discordgo.MessageSend {
	style := styleFor(platform)

	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       projectName + " " + version.Name,
			URL:         version.URL,
			Description: version.Number + " (" + version.Type + ")",
			Color:       style.Color,
			Footer: &discordgo.MessageEmbedFooter{
				Text:    version.Date.Format("Jan 2, 2006"),
				IconURL: style.IconURL,
			},
		}},
	}
}

func fullMessage(version *platforms.VersionInfo, projectName, platform string, changelogMaxLength int) *discordgo.MessageSend {
	style := styleFor(platform)
	changelog := format.Truncate(format.StripHTML(version.Changelog), changelogMaxLength)

	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name:    style.Author,
			IconURL: style.IconURL,
		},
		Title:       projectName + " has been updated",
		Description: changelog,
		Color:       style.Color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Version Name", Value: version.Name, Inline: true},
			{Name: "Version Number", Value: version.Number, Inline: true},
			{Name: "Release Type", Value: version.Type, Inline: true},
			{Name: "Date Published", Value: format.RelativeTimestamp(version.Date), Inline: true},
		},
		Thumbnail: &discordgo.MessageEmbedThumbnail{
			URL: version.IconURL,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label: "View on " + format.Capitalize(platform),
						Style: discordgo.LinkButton,
						URL:   version.URL,
					},
				},
			},
		},
	}
}
