package db

import (
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/suite"
)

const (
	testDbName = "testmods2discord.dbdata"
)

type SQLiteSuite struct {
	suite.Suite
	conn *sql.DB
	db   Database
}

func (s *SQLiteSuite) SetupSuite() {
	conn, err := sql.Open("sqlite3", fmt.Sprintf("./%s", testDbName))
	s.Require().NoError(err)

	_, err = conn.Exec(`
		CREATE TABLE IF NOT EXISTS 'tracked_projects' (
			'id' INTEGER PRIMARY KEY AUTOINCREMENT,
			'platform' VARCHAR(255) NOT NULL,
			'project_id' VARCHAR(255) NOT NULL,
			'name' VARCHAR(255) NOT NULL,
			'guild_id' VARCHAR(255) NOT NULL,
			'channel_id' VARCHAR(255) NOT NULL
		);

		CREATE TABLE IF NOT EXISTS 'guild_settings' (
			'guild_id' VARCHAR(255) PRIMARY KEY,
			'notification_style' VARCHAR(255) NOT NULL,
			'changelog_max_length' INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS 'last_versions' (
			'id' INTEGER PRIMARY KEY AUTOINCREMENT,
			'platform' VARCHAR(255) NOT NULL,
			'project_id' VARCHAR(255) NOT NULL,
			'version' VARCHAR(255) NOT NULL,
			'date' DATE NOT NULL
		);
	`)
	s.Require().NoError(err)

	s.conn = conn
	s.db = NewSQLite(conn)
}

func (s *SQLiteSuite) TearDownSuite() {
	s.conn.Close()
	os.Remove(testDbName)
}

func (s *SQLiteSuite) TestTrackedProjects() {
	r := s.Require()

	p := &TrackedProject{
		Platform:  "modrinth",
		ProjectID: "P7dR8mSH",
		Name:      "Fabric API",
		GuildID:   "guild1",
		ChannelID: "chan1",
	}

	id, err := s.db.AddTrackedProject(p)
	r.NoError(err)
	r.NotEqual(-1, id)

	_, err = s.db.AddTrackedProject(p)
	r.Equal(ErrAlreadyExists, err)

	second := &TrackedProject{
		Platform:  "modrinth",
		ProjectID: "P7dR8mSH",
		Name:      "Fabric API",
		GuildID:   "guild2",
		ChannelID: "chan2",
	}
	_, err = s.db.AddTrackedProject(second)
	r.NoError(err)

	dests, err := s.db.FindDestinations("modrinth", "P7dR8mSH")
	r.NoError(err)
	r.Len(dests, 2)
	r.Equal(Destination{GuildID: "guild1", ChannelID: "chan1"}, dests[0])
	r.Equal(Destination{GuildID: "guild2", ChannelID: "chan2"}, dests[1])

	guild1, err := s.db.ListGuildTrackedProjects("guild1")
	r.NoError(err)
	r.Len(guild1, 1)
	r.Equal("Fabric API", guild1[0].Name)

	err = s.db.RemoveTrackedProject("modrinth", "P7dR8mSH", "guild1")
	r.NoError(err)

	dests, err = s.db.FindDestinations("modrinth", "P7dR8mSH")
	r.NoError(err)
	r.Len(dests, 1)
	r.Equal("guild2", dests[0].GuildID)
}

func (s *SQLiteSuite) TestGuildSettings() {
	r := s.Require()

	settings, err := s.db.GetGuildSettings("unconfigured")
	r.NoError(err)
	r.Nil(settings)

	err = s.db.SetNotificationStyle("guild3", NotificationStyleCompact)
	r.NoError(err)

	settings, err = s.db.GetGuildSettings("guild3")
	r.NoError(err)
	r.NotNil(settings)
	r.Equal(NotificationStyleCompact, settings.NotificationStyle)
	r.Equal(DefaultChangelogMaxLength, settings.ChangelogMaxLength)

	err = s.db.SetChangelogMaxLength("guild3", 1000)
	r.NoError(err)

	settings, err = s.db.GetGuildSettings("guild3")
	r.NoError(err)
	r.Equal(NotificationStyleCompact, settings.NotificationStyle)
	r.Equal(1000, settings.ChangelogMaxLength)
}

func (s *SQLiteSuite) TestLastVersion() {
	r := s.Require()

	r.Equal("", s.db.GetLastVersion("curseforge", "306612"))

	t := time.Date(2023, time.October, 1, 12, 0, 0, 0, time.UTC)
	s.db.UpdateLastVersion("curseforge", "306612", "4000001", t)
	r.Equal("4000001", s.db.GetLastVersion("curseforge", "306612"))

	s.db.UpdateLastVersion("curseforge", "306612", "4000002", t.Add(time.Hour))
	r.Equal("4000002", s.db.GetLastVersion("curseforge", "306612"))
}

func TestDBSuite(t *testing.T) {
	ts := &SQLiteSuite{}
	suite.Run(t, ts)
}
