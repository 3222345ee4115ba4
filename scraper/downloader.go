// scraper/downloader.go
package scraper

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kwehner/nyiso-scrape/config"
	"github.com/kwehner/nyiso-scrape/models"
)

// ErrNotAvailable means the file is published neither at its live URL nor in
// the monthly archive bundle. Callers treat it as an expected condition (the
// publisher simply hasn't posted the file yet), not an infrastructure fault.
var ErrNotAvailable = errors.New("source file not available")

// Downloader retrieves published CSV files. It is constructed once and holds
// no per-fetch state; the sleep function is a field so tests can observe
// backoff without waiting for it.
type Downloader struct {
	client        *http.Client
	archiveClient *http.Client
	userAgent     string
	maxRetries    int
	backoffBase   time.Duration
	backoffCap    time.Duration

	sleep func(time.Duration)

	// OnRetry, when set, is called once per retry with the source name.
	OnRetry func(sourceName string)
}

// NewDownloader builds a Downloader from the scraper config. Archives get
// their own client because the monthly ZIP bundles are an order of magnitude
// larger than a single day's CSV.
func NewDownloader(cfg config.ScraperConfig) *Downloader {
	return &Downloader{
		client:        &http.Client{Timeout: cfg.RequestTimeout},
		archiveClient: &http.Client{Timeout: cfg.ArchiveTimeout},
		userAgent:     cfg.UserAgent,
		maxRetries:    cfg.MaxRetries,
		backoffBase:   cfg.RetryBackoff,
		backoffCap:    cfg.RetryBackoffCap,
		sleep:         time.Sleep,
	}
}

// Fetch returns the raw CSV bytes for a source and target date.
//
// Transient failures (network errors, 5xx and other unexpected statuses) are
// retried up to maxRetries with exponential backoff. A 404 means the file is
// not published at that URL, so no retry happens; instead the monthly archive
// bundle is tried once and the wanted member extracted from it. When the
// archive also fails the result is ErrNotAvailable.
func (d *Downloader) Fetch(src models.DataSourceConfig, targetDate time.Time) ([]byte, error) {
	primaryURL := src.BuildURL(targetDate, false)

	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		body, status, err := d.get(d.client, primaryURL)
		if err == nil && status == http.StatusOK {
			log.Debugf("Scraper: fetched %s (%d bytes)", primaryURL, len(body))
			return body, nil
		}

		if err == nil && status == http.StatusNotFound {
			log.Infof("Scraper: %s not published yet (404), trying archive for %s",
				src.Name, targetDate.Format("2006-01-02"))
			return d.fetchFromArchive(src, targetDate)
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("received status code %d from %s", status, primaryURL)
		}

		if attempt < d.maxRetries {
			wait := d.backoff(attempt)
			log.Warnf("Scraper: attempt %d/%d for %s failed (%v), retrying in %s",
				attempt+1, d.maxRetries+1, src.Name, lastErr, wait)
			if d.OnRetry != nil {
				d.OnRetry(src.Name)
			}
			d.sleep(wait)
		}
	}

	return nil, fmt.Errorf("download failed for %s after %d attempts: %w", src.Name, d.maxRetries+1, lastErr)
}

// fetchFromArchive pulls the monthly ZIP bundle and extracts the CSV for the
// target date. One attempt only: if the bundle is also missing or unreadable
// the file is genuinely not available.
func (d *Downloader) fetchFromArchive(src models.DataSourceConfig, targetDate time.Time) ([]byte, error) {
	if src.ArchiveURLTemplate == "" {
		return nil, fmt.Errorf("%s has no archive configured: %w", src.Name, ErrNotAvailable)
	}

	archiveURL := src.BuildURL(targetDate, true)
	body, status, err := d.get(d.archiveClient, archiveURL)
	if err != nil {
		return nil, fmt.Errorf("archive fetch for %s failed (%v): %w", src.Name, err, ErrNotAvailable)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("archive fetch for %s returned status %d: %w", src.Name, status, ErrNotAvailable)
	}

	csvBytes, err := ExtractCSVFromZip(body, src.ArchiveMemberName(targetDate))
	if err != nil {
		return nil, fmt.Errorf("archive extraction for %s failed (%v): %w", src.Name, err, ErrNotAvailable)
	}

	log.Infof("Scraper: recovered %s for %s from archive (%d bytes)",
		src.Name, targetDate.Format("2006-01-02"), len(csvBytes))
	return csvBytes, nil
}

func (d *Downloader) get(client *http.Client, url string) ([]byte, int, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to make GET request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body from %s: %w", url, err)
	}
	return body, resp.StatusCode, nil
}

func (d *Downloader) backoff(attempt int) time.Duration {
	wait := d.backoffBase << uint(attempt)
	if wait > d.backoffCap || wait <= 0 {
		wait = d.backoffCap
	}
	return wait
}
