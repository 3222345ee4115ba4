// scraper/publication_checker.go
package scraper

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"

	"github.com/kwehner/nyiso-scrape/config"
	"github.com/kwehner/nyiso-scrape/models"
)

// Listing pages link each published file with its date embedded in the href,
// e.g. "csv/damlbmp/20250825damlbmp_zone.csv".
var hrefDateRegex = regexp.MustCompile(`(\d{8})`)

// PublicationChecker scrapes a source's listing page to learn which dates
// the publisher has actually posted. Daily sources consult it before
// fetching so a file that isn't out yet costs one page load instead of a
// guaranteed 404 on the CSV endpoint.
type PublicationChecker struct {
	client    *http.Client
	userAgent string
}

func NewPublicationChecker(cfg config.ScraperConfig) *PublicationChecker {
	return &PublicationChecker{
		client:    &http.Client{Timeout: cfg.RequestTimeout},
		userAgent: cfg.UserAgent,
	}
}

// IsPublished reports whether the source's listing page links a file for the
// target date. Sources without an index_url are assumed published: the
// fetcher's own 404 handling covers them.
func (c *PublicationChecker) IsPublished(src models.DataSourceConfig, targetDate time.Time) (bool, error) {
	if src.IndexURL == "" {
		return true, nil
	}

	doc, err := c.fetchListing(src.IndexURL)
	if err != nil {
		return false, err
	}

	want := targetDate.Format("20060102")
	found := false
	doc.Find("a").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok || !linkMatchesDataset(href, src.DatasetName) {
			return true
		}
		if m := hrefDateRegex.FindStringSubmatch(href); len(m) > 1 && m[1] == want {
			found = true
			return false
		}
		return true
	})

	if !found {
		log.Debugf("Scraper: %s listing has no file for %s yet", src.Name, want)
	}
	return found, nil
}

// LatestPublished returns the newest file date on the listing page, for
// operational checks. ok is false when the page lists nothing recognizable.
func (c *PublicationChecker) LatestPublished(src models.DataSourceConfig) (time.Time, bool, error) {
	if src.IndexURL == "" {
		return time.Time{}, false, fmt.Errorf("source %s has no index_url configured", src.Name)
	}

	doc, err := c.fetchListing(src.IndexURL)
	if err != nil {
		return time.Time{}, false, err
	}

	var latest time.Time
	found := false
	doc.Find("a").Each(func(i int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || !linkMatchesDataset(href, src.DatasetName) {
			return
		}
		m := hrefDateRegex.FindStringSubmatch(href)
		if len(m) < 2 {
			return
		}
		ts, perr := time.Parse("20060102", m[1])
		if perr != nil {
			return
		}
		if !found || ts.After(latest) {
			latest = ts
			found = true
		}
	})

	return latest, found, nil
}

func (c *PublicationChecker) fetchListing(pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequest(http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get listing page %s: %w", pageURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing page %s returned status %d", pageURL, res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page %s: %w", pageURL, err)
	}
	return doc, nil
}

func linkMatchesDataset(href, datasetName string) bool {
	return datasetName != "" && strings.Contains(href, datasetName)
}
