// scraper/parser.go
package scraper

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jszwec/csvutil"

	"github.com/kwehner/nyiso-scrape/models"
)

// ParseError means the file as a whole could not be understood: the header
// matched no known layout, or every row failed. Individual bad rows never
// produce a ParseError; they are counted and skipped.
type ParseError struct {
	Source string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s: %s", e.Source, e.Reason)
}

// ParseResult carries a transform's output. Records holds a shape-specific
// slice ([]models.PriceRecord, []models.FuelMixRecord, ...). RowCount is the
// number of data rows seen in the file; Skipped is how many of those were
// dropped as malformed. Wide shapes emit several records per row, so
// len(Records) and RowCount are related but not equal.
type ParseResult struct {
	Records  interface{}
	RowCount int
	Skipped  int
}

// Normalize converts raw CSV bytes into typed records for the source's
// shape. Header names are canonicalized first (publication days disagree on
// spacing, casing and unit suffixes), then a shape transform decodes the
// rows. Long/wide variants are detected from the canonical header.
func Normalize(raw []byte, src models.DataSourceConfig) (*ParseResult, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf")) // strip UTF-8 BOM
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &ParseError{Source: src.Name, Reason: "file is empty"}
	}

	csvReader := csv.NewReader(bytes.NewReader(raw))
	csvReader.TrimLeadingSpace = true

	rawHeader, err := csvReader.Read()
	if err != nil {
		return nil, &ParseError{Source: src.Name, Reason: fmt.Sprintf("missing header row: %v", err)}
	}
	header := canonicalizeHeaders(rawHeader)

	decoder, err := csvutil.NewDecoder(csvReader, header...)
	if err != nil {
		return nil, &ParseError{Source: src.Name, Reason: fmt.Sprintf("failed to create decoder: %v", err)}
	}

	var result *ParseResult
	switch src.Shape {
	case models.ShapeZonalPrice:
		result, err = parseZonalPrices(decoder, header, src)
	case models.ShapeZoneLoad:
		result, err = parseZoneLoads(decoder, header, src)
	case models.ShapeLoadForecast:
		result, err = parseLoadForecast(decoder, header, src)
	case models.ShapeInterfaceFlow:
		result, err = parseInterfaceFlows(decoder, header, src)
	case models.ShapeAncillaryServices:
		result, err = parseAncillaryPrices(decoder, header, src)
	case models.ShapeFuelMix:
		result, err = parseFuelMix(decoder, header, src)
	default:
		return nil, &ParseError{Source: src.Name, Reason: fmt.Sprintf("unknown shape %q", src.Shape)}
	}
	if err != nil {
		return nil, err
	}

	// A file where every row failed is treated the same as an unreadable
	// file: the layout we matched evidently wasn't the real one.
	if result.RowCount > 0 && result.RowCount == result.Skipped {
		return nil, &ParseError{Source: src.Name, Reason: fmt.Sprintf("all %d rows unparseable", result.RowCount)}
	}
	return result, nil
}

// Canonical column labels. Wide columns (zone names, fuel categories,
// service prices) have no alias and keep their published name.
var headerAliases = map[string]string{
	"time stamp":         "time_stamp",
	"timestamp":          "time_stamp",
	"rtd end time stamp": "time_stamp",
	"eastern date hour":  "time_stamp",
	"time zone":          "time_zone",
	"name":               "name",
	"ptid":               "ptid",
	"lbmp":               "lbmp",
	"marginal cost losses":     "losses",
	"marginal cost congestion": "congestion",
	"load":           "load",
	"interface name": "interface_name",
	"point id":       "point_id",
	"flow":           "flow",
	"positive limit": "positive_limit",
	"negative limit": "negative_limit",
	"fuel category":  "fuel_category",
	"gen mw":         "gen_mw",
}

// Canonical labels that must never be mistaken for a wide data column.
var reservedColumns = map[string]bool{
	"time_stamp": true,
	"time_zone":  true,
	"name":       true,
	"ptid":       true,
}

func canonicalizeHeaders(raw []string) []string {
	out := make([]string, len(raw))
	for i, col := range raw {
		trimmed := strings.TrimSpace(col)
		key := strings.ToLower(stripUnits(trimmed))
		key = strings.Join(strings.Fields(key), " ")
		if canon, ok := headerAliases[key]; ok {
			out[i] = canon
		} else {
			out[i] = trimmed
		}
	}
	return out
}

// stripUnits drops a trailing parenthesized unit, "LBMP ($/MWHr)" -> "LBMP".
func stripUnits(col string) string {
	if i := strings.Index(col, "("); i >= 0 {
		return strings.TrimSpace(col[:i])
	}
	return col
}

func hasColumn(header []string, name string) bool {
	for _, col := range header {
		if col == name {
			return true
		}
	}
	return false
}

// Timestamp layouts seen across the publisher's files, most common first.
var timestampFormats = []string{
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampFormats {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// parseFloat coerces a published numeric cell. Currency symbols and
// thousands separators are stripped; blank or unparseable cells become nil
// (null downstream), never zero.
func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseInt(s string) *int64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
