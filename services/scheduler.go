// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kwehner/nyiso-scrape/config"
	"github.com/kwehner/nyiso-scrape/database"
	"github.com/kwehner/nyiso-scrape/models"
	"github.com/kwehner/nyiso-scrape/scraper"
)

// publicationGate is the slice of the publication checker the scheduler
// needs; tests swap in a stub.
type publicationGate interface {
	IsPublished(src models.DataSourceConfig, targetDate time.Time) (bool, error)
}

// Scheduler runs one goroutine per active source, each firing the scrape
// pipeline on the cadence its frequency class implies. Overlap between
// fires of the same source is prevented through the scraping_jobs table, so
// a second scheduler process against the same database stays correct.
type Scheduler struct {
	sources      []models.DataSourceConfig
	dailyAt      string
	runOnStartup bool

	checker   publicationGate
	hasActive func(sourceName string) (bool, error)
	run       func(sourceName string, targetDate time.Time, force bool) (*models.ScrapeJob, error)
	now       func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		sources:      config.ActiveSources(),
		dailyAt:      config.AppConfig.Scheduler.DailyAt,
		runOnStartup: config.AppConfig.Scheduler.RunOnStartup,
		checker:      scraper.NewPublicationChecker(config.AppConfig.Scraper),
		hasActive:    database.HasActiveJob,
		run:          RunScrape,
		now:          time.Now,
	}
}

// Start spawns the per-source loops. It returns immediately.
func (s *Scheduler) Start() {
	if len(s.sources) == 0 {
		log.Warn("Scheduler: no active sources configured, nothing to run")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	for _, src := range s.sources {
		s.wg.Add(1)
		go s.runSource(ctx, src)
	}
	log.Infof("Scheduler: started %d source loops (daily fires at %s)", len(s.sources), s.dailyAt)
}

// Stop cancels all loops and waits for them to drain. A fire that is already
// in flight runs to completion; only future fires are lost.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	log.Info("Scheduler: stopped, all source loops drained")
}

func (s *Scheduler) runSource(ctx context.Context, src models.DataSourceConfig) {
	defer s.wg.Done()

	if src.Frequency == models.FrequencyDaily {
		s.runDaily(ctx, src)
		return
	}

	interval := intervalForFrequency(src.Frequency)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Infof("Scheduler: %s firing every %s", src.Name, interval)
	if s.runOnStartup {
		s.fire(src)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fire(src)
		}
	}
}

func (s *Scheduler) runDaily(ctx context.Context, src models.DataSourceConfig) {
	log.Infof("Scheduler: %s firing daily at %s", src.Name, s.dailyAt)
	if s.runOnStartup {
		s.fire(src)
	}
	for {
		next := s.nextDailyFire(s.now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.fire(src)
		}
	}
}

// fire runs one scheduled scrape for the source. Errors are logged, never
// propagated; the loop keeps its cadence no matter what a single run does.
func (s *Scheduler) fire(src models.DataSourceConfig) {
	targetDate := s.now()

	if src.Frequency == models.FrequencyDaily && src.IndexURL != "" {
		published, err := s.checker.IsPublished(src, targetDate)
		if err != nil {
			log.Warnf("Scheduler: publication check failed for %s, trying the fetch anyway: %v", src.Name, err)
		} else if !published {
			log.Infof("Scheduler: %s not yet listed for %s, skipping fire",
				src.Name, targetDate.Format("2006-01-02"))
			return
		}
	}

	active, err := s.hasActive(src.Name)
	if err != nil {
		log.Errorf("Scheduler: could not check in-flight jobs for %s: %v", src.Name, err)
		return
	}
	if active {
		log.Infof("Scheduler: %s already has a job in flight, skipping fire", src.Name)
		return
	}

	// Same-day snapshot files keep mutating for realtime/hourly/multi_daily
	// sources, so those fires force a re-ingest; a daily file is written once.
	force := src.Frequency != models.FrequencyDaily
	if _, err := s.run(src.Name, targetDate, force); err != nil {
		log.Errorf("Scheduler: run failed for %s: %v", src.Name, err)
	}
}

// nextDailyFire returns the next wall-clock occurrence of dailyAt after now.
func (s *Scheduler) nextDailyFire(now time.Time) time.Time {
	hour, minute, err := parseDailyAt(s.dailyAt)
	if err != nil {
		log.Warnf("Scheduler: bad daily_at %q, using 07:00: %v", s.dailyAt, err)
		hour, minute = 7, 0
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func intervalForFrequency(freq string) time.Duration {
	switch freq {
	case models.FrequencyRealtime:
		return 5 * time.Minute
	case models.FrequencyHourly:
		return time.Hour
	case models.FrequencyMultiDaily:
		return 6 * time.Hour
	default:
		return 24 * time.Hour
	}
}

func parseDailyAt(s string) (int, int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("bad hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("bad minute in %q", s)
	}
	return hour, minute, nil
}
