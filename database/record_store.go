// database/record_store.go
package database

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/kwehner/nyiso-scrape/models"
)

// The zonal-price shape fans out to three tables depending on the source;
// the table name arrives from config, so it is checked against this set
// before being spliced into SQL.
var zonalPriceTables = map[string]bool{
	"realtime_lbmp":     true,
	"dayahead_lbmp":     true,
	"timeweighted_lbmp": true,
}

// Upsert batches run as one transaction each: every row is written with
// INSERT ... ON DUPLICATE KEY UPDATE so re-ingesting a file updates in place
// instead of duplicating. RowsAffected distinguishes the outcomes (1 = new
// row, 2 = existing row changed, 0 = existing row re-sent unchanged); the
// inserted/updated counters feed the job record. Any row error rolls back
// the whole batch.

// UpsertZonalPrices writes price records into the given LBMP table.
func UpsertZonalPrices(table string, records []models.PriceRecord) (int, int, error) {
	if DB == nil {
		return 0, 0, fmt.Errorf("database connection is not initialized")
	}
	if !zonalPriceTables[table] {
		return 0, 0, fmt.Errorf("unknown zonal price table %q", table)
	}
	if len(records) == 0 {
		log.Debugf("Store: no zonal price records to save for %s", table)
		return 0, 0, nil
	}

	zoneIDs, err := resolveZoneIDs(zoneKeysFromPrices(records))
	if err != nil {
		return 0, 0, err
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction for %s: %w", table, err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO %s (`+"`timestamp`"+`, zone_id, lbmp, marginal_cost_losses, marginal_cost_congestion)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			lbmp = VALUES(lbmp),
			marginal_cost_losses = VALUES(marginal_cost_losses),
			marginal_cost_congestion = VALUES(marginal_cost_congestion)
	`, table))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare %s upsert: %w", table, err)
	}
	defer stmt.Close()

	inserted, updated := 0, 0
	for _, rec := range records {
		res, err := stmt.Exec(
			rec.Timestamp, zoneIDs[rec.ZoneName],
			nullableFloat64(rec.LBMP), nullableFloat64(rec.Losses), nullableFloat64(rec.Congestion),
		)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to upsert %s row (ts=%s zone=%s): %w",
				table, rec.Timestamp.Format("2006-01-02 15:04:05"), rec.ZoneName, err)
		}
		n, _ := res.RowsAffected()
		if n == 1 {
			inserted++
		} else {
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit %s batch: %w", table, err)
	}
	return inserted, updated, nil
}

// UpsertZoneLoads writes actual-load records.
func UpsertZoneLoads(records []models.LoadRecord) (int, int, error) {
	if DB == nil {
		return 0, 0, fmt.Errorf("database connection is not initialized")
	}
	if len(records) == 0 {
		log.Debug("Store: no load records to save")
		return 0, 0, nil
	}

	keys := make(map[string]*int64)
	for _, rec := range records {
		if _, ok := keys[rec.ZoneName]; !ok || keys[rec.ZoneName] == nil {
			keys[rec.ZoneName] = rec.PTID
		}
	}
	zoneIDs, err := resolveZoneIDs(keys)
	if err != nil {
		return 0, 0, err
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction for realtime_load: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO realtime_load (` + "`timestamp`" + `, zone_id, time_zone, load_mw)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			time_zone = VALUES(time_zone),
			load_mw = VALUES(load_mw)
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare realtime_load upsert: %w", err)
	}
	defer stmt.Close()

	inserted, updated := 0, 0
	for _, rec := range records {
		res, err := stmt.Exec(rec.Timestamp, zoneIDs[rec.ZoneName], rec.TimeZone, nullableFloat64(rec.Load))
		if err != nil {
			return 0, 0, fmt.Errorf("failed to upsert realtime_load row (ts=%s zone=%s): %w",
				rec.Timestamp.Format("2006-01-02 15:04:05"), rec.ZoneName, err)
		}
		n, _ := res.RowsAffected()
		if n == 1 {
			inserted++
		} else {
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit realtime_load batch: %w", err)
	}
	return inserted, updated, nil
}

// UpsertLoadForecasts writes forecast records.
func UpsertLoadForecasts(records []models.ForecastRecord) (int, int, error) {
	if DB == nil {
		return 0, 0, fmt.Errorf("database connection is not initialized")
	}
	if len(records) == 0 {
		log.Debug("Store: no forecast records to save")
		return 0, 0, nil
	}

	keys := make(map[string]*int64)
	for _, rec := range records {
		keys[rec.ZoneName] = nil // forecast files carry no point ids
	}
	zoneIDs, err := resolveZoneIDs(keys)
	if err != nil {
		return 0, 0, err
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction for load_forecast: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO load_forecast (` + "`timestamp`" + `, zone_id, forecast_mw)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE forecast_mw = VALUES(forecast_mw)
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare load_forecast upsert: %w", err)
	}
	defer stmt.Close()

	inserted, updated := 0, 0
	for _, rec := range records {
		res, err := stmt.Exec(rec.Timestamp, zoneIDs[rec.ZoneName], nullableFloat64(rec.Forecast))
		if err != nil {
			return 0, 0, fmt.Errorf("failed to upsert load_forecast row (ts=%s zone=%s): %w",
				rec.Timestamp.Format("2006-01-02 15:04:05"), rec.ZoneName, err)
		}
		n, _ := res.RowsAffected()
		if n == 1 {
			inserted++
		} else {
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit load_forecast batch: %w", err)
	}
	return inserted, updated, nil
}

// UpsertInterfaceFlows writes interface flow records.
func UpsertInterfaceFlows(records []models.FlowRecord) (int, int, error) {
	if DB == nil {
		return 0, 0, fmt.Errorf("database connection is not initialized")
	}
	if len(records) == 0 {
		log.Debug("Store: no flow records to save")
		return 0, 0, nil
	}

	keys := make(map[string]*int64)
	for _, rec := range records {
		if _, ok := keys[rec.InterfaceName]; !ok || keys[rec.InterfaceName] == nil {
			keys[rec.InterfaceName] = rec.PointID
		}
	}
	ifaceIDs := make(map[string]int64, len(keys))
	for name, pointID := range keys {
		id, err := GetOrCreateInterface(name, pointID)
		if err != nil {
			return 0, 0, err
		}
		ifaceIDs[name] = id
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction for interface_flows: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO interface_flows (` + "`timestamp`" + `, interface_id, flow_mwh, positive_limit_mwh, negative_limit_mwh)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			flow_mwh = VALUES(flow_mwh),
			positive_limit_mwh = VALUES(positive_limit_mwh),
			negative_limit_mwh = VALUES(negative_limit_mwh)
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare interface_flows upsert: %w", err)
	}
	defer stmt.Close()

	inserted, updated := 0, 0
	for _, rec := range records {
		res, err := stmt.Exec(
			rec.Timestamp, ifaceIDs[rec.InterfaceName],
			nullableFloat64(rec.Flow), nullableFloat64(rec.PositiveLimit), nullableFloat64(rec.NegativeLimit),
		)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to upsert interface_flows row (ts=%s interface=%s): %w",
				rec.Timestamp.Format("2006-01-02 15:04:05"), rec.InterfaceName, err)
		}
		n, _ := res.RowsAffected()
		if n == 1 {
			inserted++
		} else {
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit interface_flows batch: %w", err)
	}
	return inserted, updated, nil
}

// UpsertAncillaryPrices writes ancillary-service price records. Both markets
// share the table; the market column is part of the uniqueness key.
func UpsertAncillaryPrices(records []models.AncillaryRecord) (int, int, error) {
	if DB == nil {
		return 0, 0, fmt.Errorf("database connection is not initialized")
	}
	if len(records) == 0 {
		log.Debug("Store: no ancillary records to save")
		return 0, 0, nil
	}

	keys := make(map[string]*int64)
	for _, rec := range records {
		if _, ok := keys[rec.ZoneName]; !ok || keys[rec.ZoneName] == nil {
			keys[rec.ZoneName] = rec.PTID
		}
	}
	zoneIDs, err := resolveZoneIDs(keys)
	if err != nil {
		return 0, 0, err
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction for ancillary_services: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO ancillary_services (` + "`timestamp`" + `, zone_id, market, service, price)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE price = VALUES(price)
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare ancillary_services upsert: %w", err)
	}
	defer stmt.Close()

	inserted, updated := 0, 0
	for _, rec := range records {
		res, err := stmt.Exec(rec.Timestamp, zoneIDs[rec.ZoneName], rec.Market, rec.Service, nullableFloat64(rec.Price))
		if err != nil {
			return 0, 0, fmt.Errorf("failed to upsert ancillary_services row (ts=%s zone=%s service=%s): %w",
				rec.Timestamp.Format("2006-01-02 15:04:05"), rec.ZoneName, rec.Service, err)
		}
		n, _ := res.RowsAffected()
		if n == 1 {
			inserted++
		} else {
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit ancillary_services batch: %w", err)
	}
	return inserted, updated, nil
}

// UpsertFuelMix writes fuel-mix records. Fuel type is a plain column, not a
// dimension table: the category set is small and fixed by the publisher.
func UpsertFuelMix(records []models.FuelMixRecord) (int, int, error) {
	if DB == nil {
		return 0, 0, fmt.Errorf("database connection is not initialized")
	}
	if len(records) == 0 {
		log.Debug("Store: no fuel mix records to save")
		return 0, 0, nil
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction for fuel_mix: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO fuel_mix (` + "`timestamp`" + `, fuel_type, gen_mw)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE gen_mw = VALUES(gen_mw)
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare fuel_mix upsert: %w", err)
	}
	defer stmt.Close()

	inserted, updated := 0, 0
	for _, rec := range records {
		res, err := stmt.Exec(rec.Timestamp, rec.FuelName, nullableFloat64(rec.GenMW))
		if err != nil {
			return 0, 0, fmt.Errorf("failed to upsert fuel_mix row (ts=%s fuel=%s): %w",
				rec.Timestamp.Format("2006-01-02 15:04:05"), rec.FuelName, err)
		}
		n, _ := res.RowsAffected()
		if n == 1 {
			inserted++
		} else {
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit fuel_mix batch: %w", err)
	}
	return inserted, updated, nil
}

// resolveZoneIDs maps each distinct zone name in a batch to its row id,
// creating rows as needed. Creation happens before the batch transaction:
// dimension rows are append-only and shared, so they are kept even when the
// batch itself rolls back.
func resolveZoneIDs(keys map[string]*int64) (map[string]int64, error) {
	ids := make(map[string]int64, len(keys))
	for name, ptid := range keys {
		id, err := GetOrCreateZone(name, ptid)
		if err != nil {
			return nil, err
		}
		ids[name] = id
	}
	return ids, nil
}

func zoneKeysFromPrices(records []models.PriceRecord) map[string]*int64 {
	keys := make(map[string]*int64)
	for _, rec := range records {
		if existing, ok := keys[rec.ZoneName]; !ok || existing == nil {
			keys[rec.ZoneName] = rec.PTID
		}
	}
	return keys
}
