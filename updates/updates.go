// Package updates polls the upstream platforms for new versions of
// tracked projects and hands detected updates to the notifier.
package updates

import (
	"math/rand"
	"time"

	"github.com/DrexHD/discord-bot/configs"
	"github.com/DrexHD/discord-bot/db"
	"github.com/DrexHD/discord-bot/notify"
	"github.com/DrexHD/discord-bot/platforms"
	"github.com/lomik/zapwriter"
	"go.uber.org/zap"
)

type Service struct {
	db       db.Database
	sources  map[string]platforms.Source
	notifier *notify.Notifier

	logger *zap.Logger
}

func NewService(database db.Database, sources map[string]platforms.Source, notifier *notify.Notifier) *Service {
	return &Service{
		db:       database,
		sources:  sources,
		notifier: notifier,
		logger:   zapwriter.Logger("updates"),
	}
}

// WatchAll starts a watcher for every project currently tracked by any
// guild. Projects tracked by several guilds get a single watcher.
func (s *Service) WatchAll() error {
	projects, err := s.db.ListTrackedProjects()
	if err != nil {
		return err
	}

	for _, p := range projects {
		s.Watch(p)
	}

	return nil
}

// Watch starts a background watcher for one project unless it is
// already being watched.
func (s *Service) Watch(p *db.TrackedProject) {
	key := p.Platform + "/" + p.ProjectID

	configs.Config.Lock()
	if configs.Config.WatchedProjects[key] {
		configs.Config.Unlock()
		return
	}
	configs.Config.WatchedProjects[key] = true
	configs.Config.Unlock()

	source, ok := s.sources[p.Platform]
	if !ok {
		s.logger.Warn("unsupported platform, not watching",
			zap.String("platform", p.Platform),
			zap.String("project_id", p.ProjectID),
		)
		return
	}

	w := &watcher{
		project: p,
		source:  source,
		service: s,
		logger: s.logger.With(
			zap.String("platform", p.Platform),
			zap.String("project_id", p.ProjectID),
		),
	}

	go w.run()
}

// ForceProcess fetches a tracked project and sends the notification
// regardless of whether a new version was published. Debug tooling for
// the admin account.
func (s *Service) ForceProcess(platform, projectID string) error {
	projects, err := s.db.ListTrackedProjects()
	if err != nil {
		return err
	}

	for _, p := range projects {
		if p.Platform != platform || p.ProjectID != projectID {
			continue
		}

		source, ok := s.sources[platform]
		if !ok {
			s.logger.Warn("unsupported platform",
				zap.String("platform", platform),
			)
			return nil
		}

		rec, err := source.FetchProject(projectID)
		if err != nil {
			return err
		}

		s.notifier.SendUpdateEmbed(p, rec)
		return nil
	}

	return nil
}

type watcher struct {
	project *db.TrackedProject
	source  platforms.Source
	service *Service
	logger  *zap.Logger
}

func (w *watcher) run() {
	configs.Config.RLock()
	interval := configs.Config.PollingInterval
	configs.Config.RUnlock()

	delay := time.Duration(rand.Int()) % interval
	t0 := time.Now()
	nextRun := t0.Add(delay)
	w.logger.Info("will watch project",
		zap.Duration("extra_delay", delay),
		zap.Time("nextRun", nextRun),
	)

	for {
		dt := time.Until(nextRun)
		if dt > 0 {
			time.Sleep(dt)
		}
		nextRun = nextRun.Add(interval)
		t0 = time.Now()

		rec, err := w.source.FetchProject(w.project.ProjectID)
		if err != nil {
			w.logger.Info("project fetch failed",
				zap.Duration("runtime", time.Since(t0)),
				zap.Time("nextRun", nextRun),
				zap.Error(err),
			)
			continue
		}

		marker := rec.VersionMarker()
		if marker == "" {
			w.logger.Debug("project has no published version yet")
			continue
		}

		last := w.service.db.GetLastVersion(w.project.Platform, w.project.ProjectID)
		if marker == last {
			continue
		}

		// First sighting establishes the baseline without notifying,
		// otherwise every restart would replay the newest version.
		if last != "" {
			w.logger.Info("new version detected",
				zap.String("version_marker", marker),
			)
			w.service.notifier.SendUpdateEmbed(w.project, rec)
		}

		w.service.db.UpdateLastVersion(w.project.Platform, w.project.ProjectID, marker, time.Now())

		w.logger.Info("done",
			zap.Duration("runtime", time.Since(t0)),
			zap.Time("nextRun", nextRun),
		)
	}
}
