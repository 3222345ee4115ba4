// handlers/source_handler_test.go
package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwehner/nyiso-scrape/models"
)

func TestGetSourcesHandler(t *testing.T) {
	mock := setupHandlerDB(t)
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	scraped := time.Date(2024, 3, 15, 7, 0, 5, 0, time.UTC)

	mock.ExpectQuery("SELECT id, name, report_code").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "report_code", "dataset_name", "category",
			"update_frequency", "is_active", "last_scraped_at", "created_at",
		}).
			AddRow(1, "dam_zonal_lbmp", "P-2A", "damlbmp_zone", "pricing", "daily", true, scraped, created).
			AddRow(2, "rt_fuel_mix", "P-63", "rtfuelmix", "generation", "realtime", true, nil, created))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/sources", nil)
	GetSourcesHandler(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var sources []models.DataSource
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sources))
	require.Len(t, sources, 2)
	assert.Equal(t, "dam_zonal_lbmp", sources[0].Name)
	require.NotNil(t, sources[0].LastScrapedAt)
	assert.Equal(t, scraped, *sources[0].LastScrapedAt)
	assert.Nil(t, sources[1].LastScrapedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSourcesHandlerEmpty(t *testing.T) {
	mock := setupHandlerDB(t)

	mock.ExpectQuery("SELECT id, name, report_code").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "report_code", "dataset_name", "category",
			"update_frequency", "is_active", "last_scraped_at", "created_at",
		}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/sources", nil)
	GetSourcesHandler(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetZonesHandler(t *testing.T) {
	mock := setupHandlerDB(t)
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, name, ptid, created_at FROM zones").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "ptid", "created_at"}).
			AddRow(5, "CAPITL", 61757, created).
			AddRow(8, "N.Y.C.", nil, created))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/zones", nil)
	GetZonesHandler(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var zones []models.Zone
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &zones))
	require.Len(t, zones, 2)
	assert.Equal(t, "CAPITL", zones[0].Name)
	require.NotNil(t, zones[0].PTID)
	assert.Equal(t, int64(61757), *zones[0].PTID)
	assert.Nil(t, zones[1].PTID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetZonesHandlerRejectsPost(t *testing.T) {
	setupHandlerDB(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/zones", nil)
	GetZonesHandler(w, r)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
