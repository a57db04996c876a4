package notify

import (
	"testing"
	"time"

	"github.com/DrexHD/discord-bot/db"
	"github.com/DrexHD/discord-bot/platforms"
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	destinations []db.Destination
	settings     map[string]*db.GuildSettings
}

func (f *fakeDB) AddTrackedProject(p *db.TrackedProject) (int, error) { return 1, nil }

func (f *fakeDB) RemoveTrackedProject(platform, projectID, guildID string) error { return nil }

func (f *fakeDB) ListTrackedProjects() ([]*db.TrackedProject, error) { return nil, nil }
func (f *fakeDB) ListGuildTrackedProjects(guildID string) ([]*db.TrackedProject, error) {
	return nil, nil
}

func (f *fakeDB) FindDestinations(platform, projectID string) ([]db.Destination, error) {
	return f.destinations, nil
}

func (f *fakeDB) GetGuildSettings(guildID string) (*db.GuildSettings, error) {
	return f.settings[guildID], nil
}

func (f *fakeDB) SetNotificationStyle(guildID, style string) error { return nil }

func (f *fakeDB) SetChangelogMaxLength(guildID string, length int) error { return nil }

func (f *fakeDB) GetLastVersion(platform, projectID string) string { return "" }

func (f *fakeDB) UpdateLastVersion(platform, projectID, version string, t time.Time) {}

type fakeRecord struct{}

func (fakeRecord) Title() string         { return "Test Project" }
func (fakeRecord) VersionMarker() string { return "1" }

type fakeSource struct {
	version      *platforms.VersionInfo
	resolveCalls int
}

func (f *fakeSource) Name() string { return "curseforge" }

func (f *fakeSource) FetchProject(projectID string) (platforms.Record, error) {
	return fakeRecord{}, nil
}

func (f *fakeSource) LatestVersion(rec platforms.Record) *platforms.VersionInfo {
	f.resolveCalls++
	return f.version
}

type sentMessage struct {
	channelID string
	msg       *discordgo.MessageSend
}

type fakeChat struct {
	// channel id -> guild id, the simulated state cache
	channels map[string]string
	guilds   map[string]bool
	sent     []sentMessage
}

func (f *fakeChat) Guild(guildID string) (*discordgo.Guild, error) {
	if !f.guilds[guildID] {
		return nil, errors.New("guild not found")
	}
	return &discordgo.Guild{ID: guildID}, nil
}

func (f *fakeChat) GuildChannel(guildID, channelID string) (*discordgo.Channel, error) {
	owner, ok := f.channels[channelID]
	if !ok || owner != guildID {
		return nil, errors.New("channel not found")
	}
	return &discordgo.Channel{ID: channelID, GuildID: guildID}, nil
}

func (f *fakeChat) Send(channelID string, msg *discordgo.MessageSend) error {
	f.sent = append(f.sent, sentMessage{channelID, msg})
	return nil
}

func testVersion() *platforms.VersionInfo {
	return &platforms.VersionInfo{
		Changelog: "<p>Fixed a crash</p><br>More fixes &amp; cleanup",
		Date:      time.Date(2023, time.October, 1, 12, 0, 0, 0, time.UTC),
		IconURL:   "https://example.com/icon.png",
		Name:      "Test Project 1.2.0",
		Number:    "1.2.0",
		Type:      "Beta",
		URL:       "https://www.curseforge.com/minecraft/mc-mods/test-project/files/1",
	}
}

func testProject() *db.TrackedProject {
	return &db.TrackedProject{
		Platform:  "curseforge",
		ProjectID: "12345",
		Name:      "Test Project",
	}
}

func newTestNotifier(database db.Database, source platforms.Source, chat ChatClient) *Notifier {
	n := NewNotifier(database, map[string]platforms.Source{"curseforge": source})
	n.AttachChat(chat)
	return n
}

func TestNoDestinations(t *testing.T) {
	source := &fakeSource{version: testVersion()}
	chat := &fakeChat{guilds: map[string]bool{}, channels: map[string]string{}}
	n := newTestNotifier(&fakeDB{}, source, chat)

	n.SendUpdateEmbed(testProject(), fakeRecord{})

	assert.Empty(t, chat.sent)
	assert.Equal(t, 1, source.resolveCalls)
}

func TestStylePerGuildSingleResolve(t *testing.T) {
	source := &fakeSource{version: testVersion()}
	chat := &fakeChat{
		guilds:   map[string]bool{"g1": true, "g2": true},
		channels: map[string]string{"c1": "g1", "c2": "g2"},
	}
	database := &fakeDB{
		destinations: []db.Destination{
			{GuildID: "g1", ChannelID: "c1"},
			{GuildID: "g2", ChannelID: "c2"},
		},
		settings: map[string]*db.GuildSettings{
			"g1": {GuildID: "g1", NotificationStyle: db.NotificationStyleCompact, ChangelogMaxLength: 100},
			// g2 has no settings row and falls back to the full style
		},
	}
	n := newTestNotifier(database, source, chat)

	n.SendUpdateEmbed(testProject(), fakeRecord{})

	require.Len(t, chat.sent, 2)
	assert.Equal(t, 1, source.resolveCalls)

	compact := chat.sent[0].msg.Embeds[0]
	assert.Equal(t, "Test Project Test Project 1.2.0", compact.Title)
	assert.Equal(t, "1.2.0 (Beta)", compact.Description)

	full := chat.sent[1].msg.Embeds[0]
	assert.Equal(t, "Test Project has been updated", full.Title)
	require.Len(t, full.Fields, 4)
	assert.Equal(t, "Release Type", full.Fields[2].Name)
	assert.Equal(t, "Beta", full.Fields[2].Value)
}

func TestResolverFailureNoSends(t *testing.T) {
	source := &fakeSource{version: nil}
	chat := &fakeChat{
		guilds:   map[string]bool{"g1": true},
		channels: map[string]string{"c1": "g1"},
	}
	database := &fakeDB{destinations: []db.Destination{{GuildID: "g1", ChannelID: "c1"}}}
	n := newTestNotifier(database, source, chat)

	n.SendUpdateEmbed(testProject(), fakeRecord{})

	assert.Empty(t, chat.sent)
	assert.Equal(t, 1, source.resolveCalls)
}

func TestUnsupportedPlatform(t *testing.T) {
	source := &fakeSource{version: testVersion()}
	chat := &fakeChat{}
	n := newTestNotifier(&fakeDB{}, source, chat)

	project := testProject()
	project.Platform = "spigot"
	n.SendUpdateEmbed(project, fakeRecord{})

	assert.Empty(t, chat.sent)
	assert.Equal(t, 0, source.resolveCalls)
}

func TestMissingGuildSkipsOnlyThatDestination(t *testing.T) {
	source := &fakeSource{version: testVersion()}
	chat := &fakeChat{
		guilds:   map[string]bool{"g2": true},
		channels: map[string]string{"c2": "g2"},
	}
	database := &fakeDB{
		destinations: []db.Destination{
			{GuildID: "gone", ChannelID: "c1"},
			{GuildID: "g2", ChannelID: "c2"},
		},
	}
	n := newTestNotifier(database, source, chat)

	n.SendUpdateEmbed(testProject(), fakeRecord{})

	require.Len(t, chat.sent, 1)
	assert.Equal(t, "c2", chat.sent[0].channelID)
}

func TestFullMessageRendering(t *testing.T) {
	settings := &db.GuildSettings{
		GuildID:            "g1",
		NotificationStyle:  db.NotificationStyleFull,
		ChangelogMaxLength: 250,
	}
	msg := BuildUpdateMessage(testVersion(), "Test Project", "curseforge", settings)

	embed := msg.Embeds[0]
	assert.Equal(t, "From curseforge.com", embed.Author.Name)
	assert.Equal(t, 0xf87a1b, embed.Color)
	assert.Equal(t, "Fixed a crash\nMore fixes  cleanup", embed.Description)
	assert.Equal(t, "https://example.com/icon.png", embed.Thumbnail.URL)
	assert.Equal(t, "<t:1696161600:R>", embed.Fields[3].Value)

	require.Len(t, msg.Components, 1)
	row, ok := msg.Components[0].(discordgo.ActionsRow)
	require.True(t, ok)
	button, ok := row.Components[0].(discordgo.Button)
	require.True(t, ok)
	assert.Equal(t, "View on Curseforge", button.Label)
	assert.Equal(t, discordgo.LinkButton, button.Style)
	assert.Equal(t, testVersion().URL, button.URL)
}

func TestCompactMessageRendering(t *testing.T) {
	settings := &db.GuildSettings{
		GuildID:            "g1",
		NotificationStyle:  db.NotificationStyleCompact,
		ChangelogMaxLength: 250,
	}
	msg := BuildUpdateMessage(testVersion(), "Test Project", "modrinth", settings)

	embed := msg.Embeds[0]
	assert.Equal(t, 0x1bd96a, embed.Color)
	assert.Equal(t, testVersion().URL, embed.URL)
	assert.Equal(t, "Oct 1, 2023", embed.Footer.Text)
	assert.Empty(t, msg.Components)
}

func TestUnknownPlatformStyle(t *testing.T) {
	style := styleFor("spigot")
	assert.Equal(t, "From unknown source", style.Author)
	assert.Equal(t, colorDarkGreen, style.Color)
	assert.Empty(t, style.IconURL)
}
