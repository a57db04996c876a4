package main

import (
	"database/sql"
	"flag"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/DrexHD/discord-bot/configs"
	"github.com/DrexHD/discord-bot/db"
	"github.com/DrexHD/discord-bot/endpoints/discord"
	"github.com/DrexHD/discord-bot/notify"
	"github.com/DrexHD/discord-bot/platforms"
	"github.com/DrexHD/discord-bot/platforms/curseforge"
	"github.com/DrexHD/discord-bot/platforms/modrinth"
	"github.com/DrexHD/discord-bot/updates"
	"github.com/lomik/zapwriter"
	_ "github.com/mattn/go-sqlite3"
)

const (
	current_schema_version = 1
)

func initSqlite() db.Database {
	var err error
	logger := zapwriter.Logger("main")

	configs.Config.DB, err = sql.Open("sqlite3", configs.Config.DatabaseURL)
	if err != nil {
		logger.Fatal("unable to open database file",
			zap.Any("config", configs.Config),
			zap.Error(err),
		)
	}

	db := db.NewSQLite(configs.Config.DB)

	rows, err := configs.Config.DB.Query("SELECT version from 'schema_version' where id=1")
	if err != nil {
		if err.Error() == "no such table: schema_version" {
			_, err = configs.Config.DB.Exec(`
					CREATE TABLE IF NOT EXISTS 'schema_version' (
						'id' INTEGER PRIMARY KEY AUTOINCREMENT,
						'version' INTEGER NOT NULL
					);

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

					INSERT INTO 'schema_version' (id, version) values (1, 1);
				`)
			if err != nil {
				logger.Fatal("failed to initialize database",
					zap.Any("config", configs.Config),
					zap.Error(err),
				)
			}
		} else {
			logger.Fatal("failed to query database version",
				zap.Error(err),
			)
		}
	} else {
		schema_version := int(0)
		for rows.Next() {
			err = rows.Scan(&schema_version)
			if err != nil {
				logger.Fatal("unable to fetch value",
					zap.Error(err),
				)
			}
		}
		rows.Close()

		if schema_version != current_schema_version {
			logger.Fatal("Unknown schema version specified",
				zap.Int("version", schema_version),
			)
		}
	}

	return db
}

func main() {
	err := zapwriter.ApplyConfig([]zapwriter.Config{configs.DefaultLoggerConfig})
	if err != nil {
		log.Fatal("Failed to initialize logger with default configuration")

	}
	logger := zapwriter.Logger("main")

	configFile := flag.String("c", "config.yaml", "config file (yaml)")
	flag.Parse()

	if *configFile != "" {
		logger.Info("Will apply config from file",
			zap.String("config_file", *configFile),
		)
		cfgRaw, err := os.ReadFile(*configFile)
		if err != nil {
			logger.Fatal("unable to load config file:",
				zap.Error(err),
			)
		}

		err = yaml.Unmarshal(cfgRaw, &configs.Config)
		if err != nil {
			logger.Fatal("error parsing config file",
				zap.Error(err),
			)
		}

		err = zapwriter.ApplyConfig(configs.Config.Logger)
		if err != nil {
			logger.Fatal("failed to apply config",
				zap.Any("config", configs.Config.Logger),
				zap.Error(err),
			)
		}
	}

	logger.Debug("loaded config", zap.Any("config", configs.Config))

	if configs.Config.DatabaseType != "sqlite3" {
		logger.Fatal("unsupported database",
			zap.String("database_type", configs.Config.DatabaseType),
			zap.Strings("supported_database_types", []string{"sqlite3"}),
		)
	}

	database := initSqlite()

	if configs.Config.DiscordToken == "" {
		logger.Fatal("discord_token is not set")
	}

	sources := map[string]platforms.Source{
		curseforge.PlatformName: curseforge.NewSource(configs.Config.CurseForgeAPIURL, configs.Config.CurseForgeAPIKey, configs.Config.UpstreamTimeout),
		modrinth.PlatformName:   modrinth.NewSource(configs.Config.ModrinthAPIURL, configs.Config.UpstreamTimeout),
	}

	exitChan := make(chan struct{})

	notifier := notify.NewNotifier(database, sources)
	updatesService := updates.NewService(database, sources, notifier)

	endpoint, err := discord.InitializeDiscordEndpoint(configs.Config.DiscordToken, exitChan, database, sources, updatesService)
	if err != nil {
		logger.Fatal("Error initializing discord endpoint",
			zap.Error(err),
		)
	}
	notifier.AttachChat(endpoint)

	go endpoint.Process()

	logger.Info("mods2discord initialized",
		zap.Any("config", configs.Config),
	)

	err = updatesService.WatchAll()
	if err != nil {
		logger.Fatal("unknown error quering database",
			zap.Error(err),
		)
	}

	err = http.ListenAndServe(configs.Config.Listen, nil)
	if err != nil {
		logger.Fatal("error creating http server",
			zap.Error(err),
		)
	}
}
