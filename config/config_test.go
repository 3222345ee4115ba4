// config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
server:
  port: "9090"
database:
  host: localhost
  port: "3306"
  user: scraper
  password: secret
  dbname: nyiso
scraper:
  max_retries: 2
  retry_backoff: 1s
sources:
  - name: realtime_zonal_lbmp
    report_code: P-24A
    dataset_name: realtime_zone
    shape: zonal_price
    frequency: realtime
    url_template: http://mis.nyiso.com/public/csv/realtime/{YYYYMMDD}realtime_zone.csv
    archive_url_template: http://mis.nyiso.com/public/csv/realtime/{YYYYMM01}realtime_zone_csv.zip
    table: realtime_zonal_prices
    active: true
`

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, minimalConfig)
	require.NoError(t, LoadConfig(path))

	assert.Equal(t, "9090", AppConfig.Server.Port)
	assert.Equal(t, "nyiso", AppConfig.Database.DBName)
	assert.Equal(t, 2, AppConfig.Scraper.MaxRetries)
	assert.Equal(t, 1*time.Second, AppConfig.Scraper.RetryBackoff)

	// Unset knobs fall back to defaults.
	assert.Equal(t, "info", AppConfig.Logging.Level)
	assert.Equal(t, "07:00", AppConfig.Scheduler.DailyAt)
	assert.Equal(t, 30*time.Second, AppConfig.Scraper.RetryBackoffCap)
	assert.NotEmpty(t, AppConfig.Scraper.UserAgent)

	src, ok := SourceByName("realtime_zonal_lbmp")
	require.True(t, ok)
	assert.Equal(t, "P-24A", src.ReportCode)
	assert.True(t, src.Active)

	_, ok = SourceByName("no_such_source")
	assert.False(t, ok)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PASSWORD", "from-env")

	path := writeConfigFile(t, minimalConfig)
	require.NoError(t, LoadConfig(path))

	assert.Equal(t, "db.internal", AppConfig.Database.Host)
	assert.Equal(t, "from-env", AppConfig.Database.Password)
	assert.Equal(t, "scraper", AppConfig.Database.User)
}

func TestLoadConfigRejectsBadSources(t *testing.T) {
	cases := []struct {
		name    string
		sources string
	}{
		{
			name: "unknown shape",
			sources: `
sources:
  - name: bad
    shape: pivoted
    frequency: daily
    url_template: http://example.com/{YYYYMMDD}.csv
    active: true
`,
		},
		{
			name: "unknown frequency",
			sources: `
sources:
  - name: bad
    shape: fuel_mix
    frequency: fortnightly
    url_template: http://example.com/{YYYYMMDD}.csv
    active: true
`,
		},
		{
			name: "duplicate name",
			sources: `
sources:
  - name: dup
    shape: fuel_mix
    frequency: realtime
    url_template: http://example.com/{YYYYMMDD}.csv
  - name: dup
    shape: fuel_mix
    frequency: realtime
    url_template: http://example.com/{YYYYMMDD}.csv
`,
		},
		{
			name: "active without url",
			sources: `
sources:
  - name: bad
    shape: fuel_mix
    frequency: realtime
    active: true
`,
		},
		{
			name: "ancillary without market",
			sources: `
sources:
  - name: bad
    shape: ancillary_services
    frequency: hourly
    url_template: http://example.com/{YYYYMMDD}.csv
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfigFile(t, "database:\n  host: localhost\n"+tc.sources)
			assert.Error(t, LoadConfig(path))
		})
	}
}

func TestLoadConfigBadDuration(t *testing.T) {
	path := writeConfigFile(t, `
scraper:
  retry_backoff: "not-a-duration"
`)
	assert.Error(t, LoadConfig(path))
}

func TestActiveSources(t *testing.T) {
	path := writeConfigFile(t, `
sources:
  - name: on
    shape: fuel_mix
    frequency: realtime
    url_template: http://example.com/{YYYYMMDD}.csv
    active: true
  - name: off
    shape: fuel_mix
    frequency: realtime
    url_template: http://example.com/{YYYYMMDD}.csv
    active: false
`)
	require.NoError(t, LoadConfig(path))

	active := ActiveSources()
	require.Len(t, active, 1)
	assert.Equal(t, "on", active[0].Name)
}
