// database/dimension_store.go
package database

import (
	"database/sql"
	"fmt"

	"github.com/kwehner/nyiso-scrape/models"
)

// GetOrCreateZone resolves a zone name to its row id, inserting the row on
// first sight. A zone created before the publisher exposed its point id gets
// the ptid backfilled the first time a file supplies one. Concurrent creators
// are resolved through the unique key on name: if the insert loses the race,
// the winning row is looked up again.
func GetOrCreateZone(name string, ptid *int64) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database connection is not initialized")
	}

	var id int64
	var existingPtid sql.NullInt64
	err := DB.QueryRow("SELECT id, ptid FROM zones WHERE name = ?", name).Scan(&id, &existingPtid)
	if err == nil {
		if !existingPtid.Valid && ptid != nil {
			if _, uerr := DB.Exec("UPDATE zones SET ptid = ? WHERE id = ?", *ptid, id); uerr != nil {
				return 0, fmt.Errorf("failed to backfill ptid for zone %s: %w", name, uerr)
			}
		}
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up zone %s: %w", name, err)
	}

	res, err := DB.Exec("INSERT INTO zones (name, ptid) VALUES (?, ?)", name, nullableInt64(ptid))
	if err != nil {
		// Lost a create race; the row exists now.
		var raceID int64
		if serr := DB.QueryRow("SELECT id FROM zones WHERE name = ?", name).Scan(&raceID); serr == nil {
			return raceID, nil
		}
		return 0, fmt.Errorf("failed to insert zone %s: %w", name, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read new zone id for %s: %w", name, err)
	}
	return id, nil
}

// GetOrCreateInterface is the interface-dimension counterpart of
// GetOrCreateZone.
func GetOrCreateInterface(name string, pointID *int64) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database connection is not initialized")
	}

	var id int64
	var existingPointID sql.NullInt64
	err := DB.QueryRow("SELECT id, point_id FROM interfaces WHERE name = ?", name).Scan(&id, &existingPointID)
	if err == nil {
		if !existingPointID.Valid && pointID != nil {
			if _, uerr := DB.Exec("UPDATE interfaces SET point_id = ? WHERE id = ?", *pointID, id); uerr != nil {
				return 0, fmt.Errorf("failed to backfill point_id for interface %s: %w", name, uerr)
			}
		}
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up interface %s: %w", name, err)
	}

	res, err := DB.Exec("INSERT INTO interfaces (name, point_id) VALUES (?, ?)", name, nullableInt64(pointID))
	if err != nil {
		var raceID int64
		if serr := DB.QueryRow("SELECT id FROM interfaces WHERE name = ?", name).Scan(&raceID); serr == nil {
			return raceID, nil
		}
		return 0, fmt.Errorf("failed to insert interface %s: %w", name, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read new interface id for %s: %w", name, err)
	}
	return id, nil
}

// GetZones returns all known zones, for the operational API.
func GetZones() ([]models.Zone, error) {
	if DB == nil {
		return nil, fmt.Errorf("database connection is not initialized")
	}

	rows, err := DB.Query("SELECT id, name, ptid, created_at FROM zones ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query zones: %w", err)
	}
	defer rows.Close()

	var zones []models.Zone
	for rows.Next() {
		var z models.Zone
		var ptid sql.NullInt64
		if err := rows.Scan(&z.ID, &z.Name, &ptid, &z.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan zone row: %w", err)
		}
		if ptid.Valid {
			z.PTID = &ptid.Int64
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating zone rows: %w", err)
	}
	return zones, nil
}

func nullableInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullableFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
