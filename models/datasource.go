// models/datasource.go
package models

import (
	"strings"
	"time"
)

// Update-frequency classes. The scheduler derives its per-source period
// from these, so config values must match exactly.
const (
	FrequencyRealtime   = "realtime"
	FrequencyHourly     = "hourly"
	FrequencyMultiDaily = "multi_daily"
	FrequencyDaily      = "daily"
)

// Record shapes. Each shape has its own normalizer transform and target
// table(s); the value in config must match one of these.
const (
	ShapeZonalPrice        = "zonal_price"
	ShapeZoneLoad          = "zone_load"
	ShapeLoadForecast      = "load_forecast"
	ShapeInterfaceFlow     = "interface_flow"
	ShapeAncillaryServices = "ancillary_services"
	ShapeFuelMix           = "fuel_mix"
)

// Market identifiers for ancillary-service sources.
const (
	MarketDayAhead = "dayahead"
	MarketRealtime = "realtime"
)

// DataSourceConfig describes one published file the scraper tracks: where to
// get it, how often it updates, and how to interpret it. Entries are loaded
// from config.yaml and are read-only at run time.
type DataSourceConfig struct {
	Name               string `yaml:"name"`                 // logical identifier, e.g. "realtime_zonal_lbmp"
	ReportCode         string `yaml:"report_code"`          // publisher catalog code, e.g. "P-24A"
	DatasetName        string `yaml:"dataset_name"`         // file-name stem, e.g. "realtime_zone"
	DisplayName        string `yaml:"display_name"`
	Category           string `yaml:"category"`             // e.g. "pricing", "load", "generation"
	Shape              string `yaml:"shape"`                // one of the Shape* constants
	Frequency          string `yaml:"frequency"`            // one of the Frequency* constants
	URLTemplate        string `yaml:"url_template"`         // accepts {YYYYMMDD}
	ArchiveURLTemplate string `yaml:"archive_url_template"` // accepts {YYYYMM01}, resolves to a ZIP bundle
	FilenamePattern    string `yaml:"filename_pattern"`     // member name inside the archive, accepts {YYYYMMDD}
	Table              string `yaml:"table"`                // target table; price sources fan out to three tables
	IndexURL           string `yaml:"index_url"`            // optional publication listing page
	Market             string `yaml:"market"`               // dayahead/realtime, ancillary shapes only
	Active             bool   `yaml:"active"`
}

// BuildURL resolves the concrete URL for a target date. With useArchive the
// archive template is used and the date token is the first of the month
// (archives are monthly bundles).
func (c DataSourceConfig) BuildURL(date time.Time, useArchive bool) string {
	if useArchive {
		firstOfMonth := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
		return strings.ReplaceAll(c.ArchiveURLTemplate, "{YYYYMM01}", firstOfMonth.Format("20060102"))
	}
	return strings.ReplaceAll(c.URLTemplate, "{YYYYMMDD}", date.Format("20060102"))
}

// ArchiveMemberName resolves the CSV file name expected inside the monthly
// archive for the given date.
func (c DataSourceConfig) ArchiveMemberName(date time.Time) string {
	return strings.ReplaceAll(c.FilenamePattern, "{YYYYMMDD}", date.Format("20060102"))
}
