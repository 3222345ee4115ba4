// models/record.go
package models

import "time"

// Zone is a pricing/load zone reference row. Created lazily the first time a
// record mentions the zone; never deleted. Time-series rows point at it by id.
type Zone struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"` // canonical uppercase, unique
	PTID      *int64    `db:"ptid" json:"ptid,omitempty"` // publisher point id, backfilled when a file supplies it
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Interface is a transmission-interface reference row (external ties and
// internal limits), the dimension for flow records.
type Interface struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"` // publisher casing kept, unique
	PointID   *int64    `db:"point_id"`
	CreatedAt time.Time `db:"created_at"`
}

// PriceRecord is one zonal LBMP observation. Losses and congestion are the
// marginal cost components; all three prices are nullable because archived
// files occasionally publish blank cells.
type PriceRecord struct {
	Timestamp  time.Time
	ZoneName   string
	PTID       *int64
	LBMP       *float64 // $/MWHr
	Losses     *float64 // marginal cost losses, $/MWHr
	Congestion *float64 // marginal cost congestion, $/MWHr
}

// LoadRecord is one actual-load observation for a zone. TimeZone carries the
// publisher's EST/EDT marker so the DST-fold hour stays disambiguated.
type LoadRecord struct {
	Timestamp time.Time
	TimeZone  string
	ZoneName  string
	PTID      *int64
	Load      *float64 // MW, null on meter gaps
}

// ForecastRecord is one forecast value for a (zone, hour) pair, unpivoted
// from the wide one-column-per-zone file.
type ForecastRecord struct {
	Timestamp time.Time
	ZoneName  string
	Forecast  *float64 // MW
}

// FlowRecord is one interface flow observation with its operating limits.
type FlowRecord struct {
	Timestamp     time.Time
	InterfaceName string
	PointID       *int64
	Flow          *float64 // MWH
	PositiveLimit *float64 // MWH
	NegativeLimit *float64 // MWH
}

// AncillaryRecord is one ancillary-service price, unpivoted so that each
// (zone, service) pair in a row becomes its own record. Market distinguishes
// the day-ahead and real-time files, which share a shape and a table.
type AncillaryRecord struct {
	Timestamp time.Time
	ZoneName  string
	PTID      *int64
	Market    string // MarketDayAhead or MarketRealtime
	Service   string // spinning_reserve, non_sync_reserve, ...
	Price     *float64
}

// FuelMixRecord is one generation reading for a fuel category.
type FuelMixRecord struct {
	Timestamp time.Time
	FuelName  string // canonical lowercase_underscore
	GenMW     *float64
}
