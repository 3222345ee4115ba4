// database/record_store_test.go
package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwehner/nyiso-scrape/models"
)

// newMockDB swaps the package connection for a sqlmock and restores it when
// the test finishes.
func newMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	old := DB
	DB = db
	t.Cleanup(func() {
		db.Close()
		DB = old
	})
	return mock
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int64) *int64       { return &v }

func fuelRecords(ts time.Time) []models.FuelMixRecord {
	return []models.FuelMixRecord{
		{Timestamp: ts, FuelName: "natural_gas", GenMW: floatPtr(4211.3)},
		{Timestamp: ts, FuelName: "hydro", GenMW: floatPtr(3100.0)},
		{Timestamp: ts, FuelName: "wind", GenMW: floatPtr(212.7)},
	}
}

func TestUpsertFuelMixCountsInsertsAndUpdates(t *testing.T) {
	mock := newMockDB(t)
	ts := time.Date(2024, 3, 15, 0, 5, 0, 0, time.UTC)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO fuel_mix")
	// New row, changed row, identical re-send: MySQL reports 1, 2 and 0
	// affected rows respectively. Only the first is an insert.
	prep.ExpectExec().WithArgs(ts, "natural_gas", 4211.3).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs(ts, "hydro", 3100.0).WillReturnResult(sqlmock.NewResult(0, 2))
	prep.ExpectExec().WithArgs(ts, "wind", 212.7).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	inserted, updated, err := UpsertFuelMix(fuelRecords(ts))
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 2, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertFuelMixIdenticalResendInsertsNothing(t *testing.T) {
	mock := newMockDB(t)
	ts := time.Date(2024, 3, 15, 0, 5, 0, 0, time.UTC)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO fuel_mix")
	for range fuelRecords(ts) {
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	inserted, _, err := UpsertFuelMix(fuelRecords(ts))
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertFuelMixRollsBackOnRowError(t *testing.T) {
	mock := newMockDB(t)
	ts := time.Date(2024, 3, 15, 0, 5, 0, 0, time.UTC)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO fuel_mix")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnError(fmt.Errorf("data too long"))
	mock.ExpectRollback()

	_, _, err := UpsertFuelMix(fuelRecords(ts))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fuel_mix row")
	assert.Contains(t, err.Error(), "hydro")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertFuelMixEmptyBatch(t *testing.T) {
	newMockDB(t) // no expectations: an empty batch must not touch the database

	inserted, updated, err := UpsertFuelMix(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Equal(t, 0, updated)
}

func TestUpsertZonalPricesResolvesZonesFirst(t *testing.T) {
	mock := newMockDB(t)
	// Zone resolution iterates a map, so the two lookups can come in either
	// order.
	mock.MatchExpectationsInOrder(false)

	ts := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	records := []models.PriceRecord{
		{Timestamp: ts, ZoneName: "CAPITL", PTID: intPtr(61757), LBMP: floatPtr(25.19), Losses: floatPtr(2.93), Congestion: floatPtr(-1.25)},
		{Timestamp: ts, ZoneName: "CENTRL", PTID: intPtr(61754), LBMP: floatPtr(23.11)},
	}

	mock.ExpectQuery("SELECT id, ptid FROM zones WHERE name").
		WithArgs("CAPITL").
		WillReturnRows(sqlmock.NewRows([]string{"id", "ptid"}).AddRow(7, 61757))
	mock.ExpectQuery("SELECT id, ptid FROM zones WHERE name").
		WithArgs("CENTRL").
		WillReturnRows(sqlmock.NewRows([]string{"id", "ptid"}).AddRow(8, 61754))

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO dayahead_lbmp")
	prep.ExpectExec().
		WithArgs(ts, int64(7), 25.19, 2.93, -1.25).
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().
		WithArgs(ts, int64(8), 23.11, nil, nil).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	inserted, updated, err := UpsertZonalPrices("dayahead_lbmp", records)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, 0, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertZonalPricesRejectsUnknownTable(t *testing.T) {
	newMockDB(t)

	_, _, err := UpsertZonalPrices("users", []models.PriceRecord{{ZoneName: "CAPITL"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown zonal price table "users"`)
}

func TestUpsertAncillaryPrices(t *testing.T) {
	mock := newMockDB(t)
	ts := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	records := []models.AncillaryRecord{
		{Timestamp: ts, ZoneName: "EAST", PTID: intPtr(61762), Market: models.MarketDayAhead, Service: "spinning_reserve", Price: floatPtr(6.25)},
	}

	mock.ExpectQuery("SELECT id, ptid FROM zones WHERE name").
		WithArgs("EAST").
		WillReturnRows(sqlmock.NewRows([]string{"id", "ptid"}).AddRow(3, 61762))
	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO ancillary_services")
	prep.ExpectExec().
		WithArgs(ts, int64(3), "dayahead", "spinning_reserve", 6.25).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	inserted, updated, err := UpsertAncillaryPrices(records)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 0, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertInterfaceFlows(t *testing.T) {
	mock := newMockDB(t)
	ts := time.Date(2024, 3, 15, 0, 5, 0, 0, time.UTC)
	records := []models.FlowRecord{
		{Timestamp: ts, InterfaceName: "SCH - HQ_CEDARS", PointID: intPtr(23316),
			Flow: floatPtr(312.4), PositiveLimit: floatPtr(530), NegativeLimit: floatPtr(-530)},
	}

	mock.ExpectQuery("SELECT id, point_id FROM interfaces WHERE name").
		WithArgs("SCH - HQ_CEDARS").
		WillReturnRows(sqlmock.NewRows([]string{"id", "point_id"}).AddRow(11, 23316))
	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO interface_flows")
	prep.ExpectExec().
		WithArgs(ts, int64(11), 312.4, 530.0, -530.0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	inserted, _, err := UpsertInterfaceFlows(records)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertZoneLoadsKeepsNullReading(t *testing.T) {
	mock := newMockDB(t)
	ts := time.Date(2024, 3, 15, 0, 5, 0, 0, time.UTC)
	records := []models.LoadRecord{
		{Timestamp: ts, TimeZone: "EST", ZoneName: "CAPITL", PTID: intPtr(61757), Load: nil},
	}

	mock.ExpectQuery("SELECT id, ptid FROM zones WHERE name").
		WithArgs("CAPITL").
		WillReturnRows(sqlmock.NewRows([]string{"id", "ptid"}).AddRow(7, 61757))
	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO realtime_load")
	prep.ExpectExec().
		WithArgs(ts, int64(7), "EST", nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	inserted, _, err := UpsertZoneLoads(records)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
