package discord

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/DrexHD/discord-bot/configs"
	"github.com/DrexHD/discord-bot/db"
	"github.com/DrexHD/discord-bot/format"
	"github.com/DrexHD/discord-bot/notify"
	"github.com/DrexHD/discord-bot/platforms"
	"github.com/DrexHD/discord-bot/updates"
	"github.com/bwmarrin/discordgo"
	"github.com/lomik/zapwriter"
	"github.com/lunny/html2md"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DiscordEndpointName = "discord"

	commandPrefix = "!"

	// Discord caps plain messages at 2000 characters.
	maxMessageLength = 2000
)

type handler func(m *discordgo.MessageCreate, tokens []string) error

type handlerWithDescription struct {
	f           handler
	description string
	hidden      bool
}

var errUnauthorized = errors.New("unauthorized action")

type DiscordEndpoint struct {
	session *discordgo.Session
	db      db.Database
	sources map[string]platforms.Source
	updates *updates.Service

	logger   *zap.Logger
	commands map[string]handlerWithDescription

	exitChan <-chan struct{}
}

func InitializeDiscordEndpoint(token string, exitChan <-chan struct{}, database db.Database, sources map[string]platforms.Source, updatesService *updates.Service) (*DiscordEndpoint, error) {
	logger := zapwriter.Logger(DiscordEndpointName)
	installDgLogger(logger, []string{token, "<TOKEN REDACTED>"})

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	session.StateEnabled = true

	e := &DiscordEndpoint{
		session:  session,
		db:       database,
		sources:  sources,
		updates:  updatesService,
		logger:   logger,
		exitChan: exitChan,
	}

	e.commands = map[string]handlerWithDescription{
		"!track": {
			f: e.handlerTrack,
			description: "`!track platform project_id` -- post update notifications for the project to this channel" + `

Example:
  ` + "`!track modrinth fabric-api`" + `

  Supported platforms: curseforge (numeric project id), modrinth (project id or slug)`,
		},
		"!untrack": {
			f:           e.handlerUntrack,
			description: "`!untrack platform project_id` -- stop notifying this server about the project",
		},
		"!list": {
			f:           e.handlerList,
			description: "`!list` -- list the projects tracked by this server",
		},
		"!style": {
			f:           e.handlerStyle,
			description: "`!style compact|full` -- choose the notification style for this server",
		},
		"!maxlength": {
			f:           e.handlerMaxLength,
			description: "`!maxlength n` -- truncate changelogs in notifications to n characters",
		},
		"!changelog": {
			f:           e.handlerChangelog,
			description: "`!changelog platform project_id` -- show the changelog of the newest version",
		},
		"!forceprocess": {
			hidden:      true,
			f:           e.handlerForceProcess,
			description: "`!forceprocess platform project_id` -- resend the newest version notification (can be only executed by the account specified in config, for debug purpose only)",
		},
		"!help": {
			f:           e.handlerHelp,
			description: "`!help` -- display current help",
		},
	}

	session.AddHandler(e.onMessageCreate)

	return e, nil
}

func (e *DiscordEndpoint) Process() {
	err := e.session.Open()
	if err != nil {
		e.logger.Fatal("failed to open discord gateway connection",
			zap.Error(err),
		)
	}

	if e.session.State.User != nil {
		e.logger.Debug("bot account",
			zap.String("username", e.session.State.User.Username),
		)
	}

	<-e.exitChan
	_ = e.session.Close()
}

// Guild implements notify.ChatClient over the session state cache.
func (e *DiscordEndpoint) Guild(guildID string) (*discordgo.Guild, error) {
	return e.session.State.Guild(guildID)
}

func (e *DiscordEndpoint) GuildChannel(guildID, channelID string) (*discordgo.Channel, error) {
	channel, err := e.session.State.Channel(channelID)
	if err != nil {
		return nil, err
	}
	if channel.GuildID != guildID {
		return nil, errors.New("channel does not belong to guild")
	}
	return channel, nil
}

func (e *DiscordEndpoint) Send(channelID string, msg *discordgo.MessageSend) error {
	_, err := e.session.ChannelMessageSendComplex(channelID, msg)
	if err != nil {
		e.logger.Error("failed to send Message",
			zap.String("channel_id", channelID),
			zap.Error(err),
		)
	}
	return err
}

func (e *DiscordEndpoint) sendMessage(channelID, message string) error {
	if len(message) > maxMessageLength {
		message = format.Truncate(message, maxMessageLength)
	}
	_, err := e.session.ChannelMessageSend(channelID, message)
	if err != nil {
		e.logger.Error("failed to send Message",
			zap.String("channel_id", channelID),
			zap.Error(err),
		)
	}
	return err
}

// returns true if user can issue commands that change tracking state
func (e *DiscordEndpoint) checkAuthorized(m *discordgo.MessageCreate) bool {
	logger := e.logger.With(zap.String("handler", "accessChecker"))

	if m.Author.ID == configs.Config.AdminUserID {
		return true
	}

	perms, err := e.session.State.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		logger.Error("failed to get channel permissions",
			zap.String("user_id", m.Author.ID),
			zap.String("channel_id", m.ChannelID),
			zap.Error(err),
		)
		return false
	}

	return perms&discordgo.PermissionManageServer != 0
}

func (e *DiscordEndpoint) sourceFor(platform string) (platforms.Source, error) {
	source, ok := e.sources[platform]
	if !ok {
		supported := make([]string, 0, len(e.sources))
		for name := range e.sources {
			supported = append(supported, name)
		}
		return nil, errors.New(fmt.Sprintf("unknown platform %q, supported: %v", platform, supported))
	}
	return source, nil
}

func (e *DiscordEndpoint) handlerTrack(m *discordgo.MessageCreate, tokens []string) error {
	if !e.checkAuthorized(m) {
		return errUnauthorized
	}
	if len(tokens) != 3 {
		return errors.New("command requires exactly 2 arguments\n\n" + e.commands["!track"].description)
	}

	e.logger.Debug("got track request",
		zap.Strings("tokens", tokens),
	)

	platform := tokens[1]
	projectID := tokens[2]

	source, err := e.sourceFor(platform)
	if err != nil {
		return err
	}

	rec, err := source.FetchProject(projectID)
	if err != nil {
		return errors.Wrap(err, "project is not accessible or doesn't exist")
	}

	project := &db.TrackedProject{
		Platform:  platform,
		ProjectID: projectID,
		Name:      rec.Title(),
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
	}

	_, err = e.db.AddTrackedProject(project)
	if err != nil {
		if err == db.ErrAlreadyExists {
			return errors.New("already tracking this project")
		}
		e.logger.Error("error adding tracked project",
			zap.String("platform", platform),
			zap.String("project_id", projectID),
			zap.String("guild_id", m.GuildID),
			zap.Error(err),
		)
		return errors.New("error occurred while trying to track")
	}

	e.updates.Watch(project)

	return e.sendMessage(m.ChannelID, "now tracking "+rec.Title())
}

func (e *DiscordEndpoint) handlerUntrack(m *discordgo.MessageCreate, tokens []string) error {
	if !e.checkAuthorized(m) {
		return errUnauthorized
	}
	if len(tokens) != 3 {
		return errors.New("command requires exactly 2 arguments\n\n" + e.commands["!untrack"].description)
	}

	platform := tokens[1]
	projectID := tokens[2]

	_, err := e.sourceFor(platform)
	if err != nil {
		return err
	}

	err = e.db.RemoveTrackedProject(platform, projectID, m.GuildID)
	if err != nil {
		e.logger.Error("error removing tracked project",
			zap.String("platform", platform),
			zap.String("project_id", projectID),
			zap.String("guild_id", m.GuildID),
			zap.Error(err),
		)
		return errors.New("error occurred while trying to untrack")
	}

	return e.sendMessage(m.ChannelID, "successfully untracked")
}

func (e *DiscordEndpoint) handlerList(m *discordgo.MessageCreate, _ []string) error {
	projects, err := e.db.ListGuildTrackedProjects(m.GuildID)
	if err != nil {
		e.logger.Error("error listing tracked projects",
			zap.String("guild_id", m.GuildID),
			zap.Error(err),
		)
		return errors.New("error occurred while listing tracked projects")
	}

	if len(projects) == 0 {
		return e.sendMessage(m.ChannelID, "nothing tracked yet, see `!help`")
	}

	response := "Tracked projects:\n"
	for _, p := range projects {
		response = response + "`" + p.Platform + "`: `" + p.ProjectID + "` (" + p.Name + ") -> <#" + p.ChannelID + ">\n"
	}

	return e.sendMessage(m.ChannelID, response)
}

func (e *DiscordEndpoint) handlerStyle(m *discordgo.MessageCreate, tokens []string) error {
	if !e.checkAuthorized(m) {
		return errUnauthorized
	}
	if len(tokens) != 2 {
		return errors.New("command requires exactly 1 argument\n\n" + e.commands["!style"].description)
	}

	style := tokens[1]
	if style != db.NotificationStyleCompact && style != db.NotificationStyleFull {
		return errors.New("style must be either `compact` or `full`")
	}

	err := e.db.SetNotificationStyle(m.GuildID, style)
	if err != nil {
		e.logger.Error("error updating notification style",
			zap.String("guild_id", m.GuildID),
			zap.Error(err),
		)
		return errors.New("error occurred while updating settings")
	}

	return e.sendMessage(m.ChannelID, "notification style set to "+style)
}

func (e *DiscordEndpoint) handlerMaxLength(m *discordgo.MessageCreate, tokens []string) error {
	if !e.checkAuthorized(m) {
		return errUnauthorized
	}
	if len(tokens) != 2 {
		return errors.New("command requires exactly 1 argument\n\n" + e.commands["!maxlength"].description)
	}

	length, err := strconv.Atoi(tokens[1])
	if err != nil || length < 4 || length > 4096 {
		return errors.New("length must be a number between 4 and 4096")
	}

	err = e.db.SetChangelogMaxLength(m.GuildID, length)
	if err != nil {
		e.logger.Error("error updating changelog max length",
			zap.String("guild_id", m.GuildID),
			zap.Error(err),
		)
		return errors.New("error occurred while updating settings")
	}

	return e.sendMessage(m.ChannelID, "changelog max length set to "+tokens[1])
}

func (e *DiscordEndpoint) handlerChangelog(m *discordgo.MessageCreate, tokens []string) error {
	if len(tokens) != 3 {
		return errors.New("command requires exactly 2 arguments\n\n" + e.commands["!changelog"].description)
	}

	platform := tokens[1]
	projectID := tokens[2]

	source, err := e.sourceFor(platform)
	if err != nil {
		return err
	}

	rec, err := source.FetchProject(projectID)
	if err != nil {
		return errors.Wrap(err, "project is not accessible or doesn't exist")
	}

	version := source.LatestVersion(rec)
	if version == nil {
		return errors.New("no version found")
	}

	changelog := html2md.Convert(version.Changelog)
	response := "**" + rec.Title() + " " + version.Number + "**\n" + changelog

	return e.sendMessage(m.ChannelID, response)
}

func (e *DiscordEndpoint) handlerForceProcess(m *discordgo.MessageCreate, tokens []string) error {
	if m.Author.ID != configs.Config.AdminUserID {
		return errUnauthorized
	}
	if len(tokens) != 3 {
		return errors.New("command requires exactly 2 arguments\n\n" + e.commands["!forceprocess"].description)
	}

	err := e.updates.ForceProcess(tokens[1], tokens[2])
	if err != nil {
		return err
	}

	return e.sendMessage(m.ChannelID, "done")
}

func (e *DiscordEndpoint) handlerHelp(m *discordgo.MessageCreate, _ []string) error {
	response := ""
	for _, v := range e.commands {
		if v.hidden {
			e.logger.Debug("hidden command's help",
				zap.String("help", v.description),
			)
			continue
		}
		response = response + v.description + "\n\n"
	}

	return e.sendMessage(m.ChannelID, response)
}

func (e *DiscordEndpoint) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if m.GuildID == "" || !strings.HasPrefix(m.Content, commandPrefix) {
		return
	}

	e.logger.Debug("got Message",
		zap.String("from", m.Author.Username),
		zap.String("text", m.Content),
	)

	tokens := strings.Fields(m.Content)
	cmd, ok := e.commands[tokens[0]]
	if !ok {
		return
	}

	err := cmd.f(m, tokens)
	if err != nil {
		err = e.sendMessage(m.ChannelID, err.Error())
	}
	if err != nil {
		e.logger.Error("error sending Message",
			zap.String("channel_id", m.ChannelID),
			zap.String("from", m.Author.Username),
			zap.String("text", m.Content),
			zap.Error(err),
		)
	}
}

var _ notify.ChatClient = (*DiscordEndpoint)(nil)
