// services/ingest_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/kwehner/nyiso-scrape/config"
	"github.com/kwehner/nyiso-scrape/database"
	"github.com/kwehner/nyiso-scrape/models"
	"github.com/kwehner/nyiso-scrape/scraper"
)

// fileFetcher abstracts the download step so tests can stub it out.
type fileFetcher interface {
	Fetch(src models.DataSourceConfig, targetDate time.Time) ([]byte, error)
}

var newFetcher = func() fileFetcher {
	d := scraper.NewDownloader(config.AppConfig.Scraper)
	d.OnRetry = func(source string) {
		fetchRetriesTotal.WithLabelValues(source).Inc()
	}
	return d
}

// RunScrape executes the full pipeline for one source and one target date:
// download, normalize, upsert, with every stage recorded on a scraping_jobs row.
//
// A nil job with nil error means the run was skipped (already completed and
// not forced). Once a job row exists, pipeline failures are finalized on that
// row and returned with a nil error; only failures before job creation are
// returned as errors.
func RunScrape(sourceName string, targetDate time.Time, force bool) (*models.ScrapeJob, error) {
	src, ok := config.SourceByName(sourceName)
	if !ok {
		return nil, fmt.Errorf("unknown data source: %s", sourceName)
	}
	targetDate = time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, time.UTC)

	if !force {
		done, err := database.HasCompletedJob(sourceName, targetDate)
		if err != nil {
			return nil, fmt.Errorf("failed to check job history for %s: %w", sourceName, err)
		}
		if done {
			log.Infof("Service: %s already completed for %s, skipping (use force to re-run)",
				sourceName, targetDate.Format("2006-01-02"))
			scrapeRunsTotal.WithLabelValues(sourceName, "skipped").Inc()
			return nil, nil
		}
	}

	job, err := database.CreateJob(sourceName, targetDate, uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("failed to create job for %s: %w", sourceName, err)
	}
	if err := database.MarkJobRunning(job.ID); err != nil {
		failJob(job, 0, fmt.Sprintf("could not transition job to running: %v", err))
		return job, nil
	}
	job.Status = models.JobStatusRunning
	log.Infof("Service: job %d (%s) started for %s on %s", job.ID, job.RunID, sourceName, targetDate.Format("2006-01-02"))

	raw, err := newFetcher().Fetch(src, targetDate)
	if err != nil {
		if errors.Is(err, scraper.ErrNotAvailable) {
			log.Warnf("Service: %s for %s not available upstream: %v", sourceName, targetDate.Format("2006-01-02"), err)
		} else {
			log.Errorf("Service: download failed for %s: %v", sourceName, err)
		}
		failJob(job, 0, err.Error())
		return job, nil
	}
	jobLog(job.ID, "info", "downloaded %d bytes from %s", len(raw), src.BuildURL(targetDate, false))

	result, err := scraper.Normalize(raw, src)
	if err != nil {
		log.Errorf("Service: parse failed for %s: %v", sourceName, err)
		failJob(job, 0, err.Error())
		return job, nil
	}
	jobLog(job.ID, "info", "parsed %d rows (%d skipped)", result.RowCount, result.Skipped)

	var saveFunc func(interface{}) (int, int, error)
	switch src.Shape {
	case models.ShapeZonalPrice:
		saveFunc = func(data interface{}) (int, int, error) {
			return database.UpsertZonalPrices(src.Table, data.([]models.PriceRecord))
		}
	case models.ShapeZoneLoad:
		saveFunc = func(data interface{}) (int, int, error) {
			return database.UpsertZoneLoads(data.([]models.LoadRecord))
		}
	case models.ShapeLoadForecast:
		saveFunc = func(data interface{}) (int, int, error) {
			return database.UpsertLoadForecasts(data.([]models.ForecastRecord))
		}
	case models.ShapeInterfaceFlow:
		saveFunc = func(data interface{}) (int, int, error) {
			return database.UpsertInterfaceFlows(data.([]models.FlowRecord))
		}
	case models.ShapeAncillaryServices:
		saveFunc = func(data interface{}) (int, int, error) {
			return database.UpsertAncillaryPrices(data.([]models.AncillaryRecord))
		}
	case models.ShapeFuelMix:
		saveFunc = func(data interface{}) (int, int, error) {
			return database.UpsertFuelMix(data.([]models.FuelMixRecord))
		}
	default:
		failJob(job, result.RowCount, fmt.Sprintf("no writer for shape %s", src.Shape))
		return job, nil
	}

	inserted, updated, err := saveFunc(result.Records)
	if err != nil {
		log.Errorf("Service: save failed for %s: %v", sourceName, err)
		failJob(job, result.RowCount, fmt.Sprintf("database write failed: %v", err))
		return job, nil
	}

	if err := database.MarkJobCompleted(job.ID, result.RowCount, inserted, updated); err != nil {
		log.Errorf("Service: could not finalize job %d: %v", job.ID, err)
		return job, nil
	}
	if err := database.UpdateSourceLastScraped(sourceName); err != nil {
		log.Warnf("Service: could not update last_scraped_at for %s: %v", sourceName, err)
	}

	job.Status = models.JobStatusCompleted
	job.RowsScraped = result.RowCount
	job.RowsInserted = inserted
	job.RowsUpdated = updated
	now := time.Now()
	job.CompletedAt = &now

	scrapeRunsTotal.WithLabelValues(sourceName, "completed").Inc()
	rowsWrittenTotal.WithLabelValues(sourceName, "inserted").Add(float64(inserted))
	rowsWrittenTotal.WithLabelValues(sourceName, "updated").Add(float64(updated))

	jobLog(job.ID, "info", "completed: %d scraped, %d inserted, %d updated", result.RowCount, inserted, updated)
	log.Infof("Service: job %d completed for %s (%d scraped, %d inserted, %d updated)",
		job.ID, sourceName, result.RowCount, inserted, updated)
	return job, nil
}

// failJob finalizes a job as failed and mirrors the reason into the job log.
func failJob(job *models.ScrapeJob, scraped int, msg string) {
	if err := database.MarkJobFailed(job.ID, scraped, msg); err != nil {
		log.Errorf("Service: could not mark job %d failed: %v", job.ID, err)
	}
	jobLog(job.ID, "error", "%s", msg)
	scrapeRunsTotal.WithLabelValues(job.SourceName, "failed").Inc()

	job.Status = models.JobStatusFailed
	job.RowsScraped = scraped
	job.ErrorMessage = &msg
	now := time.Now()
	job.CompletedAt = &now
}

// jobLog appends a line to scraping_logs; a logging failure never
// interrupts the pipeline.
func jobLog(jobID int64, level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if err := database.AppendJobLog(jobID, level, msg); err != nil {
		log.Warnf("Service: could not append job log for job %d: %v", jobID, err)
	}
}
