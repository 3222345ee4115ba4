// scraper/transforms.go
package scraper

import (
	"fmt"
	"io"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/kwehner/nyiso-scrape/models"
	"github.com/kwehner/nyiso-scrape/utils"
)

// Row structs decode every cell as a string; value coercion happens in the
// transforms so that a bad numeric cell nulls one field instead of killing
// the row. Columns absent from a given day's header simply stay "".

type zonalPriceRow struct {
	TimeStamp  string `csv:"time_stamp"`
	Name       string `csv:"name"`
	PTID       string `csv:"ptid"`
	LBMP       string `csv:"lbmp"`
	Losses     string `csv:"losses"`
	Congestion string `csv:"congestion"`
}

func parseZonalPrices(decoder *csvutil.Decoder, header []string, src models.DataSourceConfig) (*ParseResult, error) {
	for _, required := range []string{"time_stamp", "name", "lbmp"} {
		if !hasColumn(header, required) {
			return nil, &ParseError{Source: src.Name, Reason: fmt.Sprintf("zonal price file missing %s column", required)}
		}
	}

	result := &ParseResult{}
	var records []models.PriceRecord
	for {
		var row zonalPriceRow
		if err := decoder.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			result.RowCount++
			result.Skipped++
			continue
		}
		result.RowCount++

		ts, err := parseTimestamp(row.TimeStamp)
		if err != nil {
			result.Skipped++
			continue
		}
		zone := utils.NormalizeZoneName(row.Name)
		if zone == "" {
			result.Skipped++
			continue
		}

		records = append(records, models.PriceRecord{
			Timestamp:  ts,
			ZoneName:   zone,
			PTID:       parseInt(row.PTID),
			LBMP:       parseFloat(row.LBMP),
			Losses:     parseFloat(row.Losses),
			Congestion: parseFloat(row.Congestion),
		})
	}

	result.Records = records
	return result, nil
}

type zoneLoadRow struct {
	TimeStamp string `csv:"time_stamp"`
	TimeZone  string `csv:"time_zone"`
	Name      string `csv:"name"`
	PTID      string `csv:"ptid"`
	Load      string `csv:"load"`
}

func parseZoneLoads(decoder *csvutil.Decoder, header []string, src models.DataSourceConfig) (*ParseResult, error) {
	for _, required := range []string{"time_stamp", "name", "load"} {
		if !hasColumn(header, required) {
			return nil, &ParseError{Source: src.Name, Reason: fmt.Sprintf("load file missing %s column", required)}
		}
	}

	result := &ParseResult{}
	var records []models.LoadRecord
	for {
		var row zoneLoadRow
		if err := decoder.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			result.RowCount++
			result.Skipped++
			continue
		}
		result.RowCount++

		ts, err := parseTimestamp(row.TimeStamp)
		if err != nil {
			result.Skipped++
			continue
		}
		zone := utils.NormalizeZoneName(row.Name)
		if zone == "" {
			result.Skipped++
			continue
		}

		// Load stays nullable: meter gaps publish blank cells.
		records = append(records, models.LoadRecord{
			Timestamp: ts,
			TimeZone:  strings.TrimSpace(row.TimeZone),
			ZoneName:  zone,
			PTID:      parseInt(row.PTID),
			Load:      parseFloat(row.Load),
		})
	}

	result.Records = records
	return result, nil
}

type timestampRow struct {
	TimeStamp string `csv:"time_stamp"`
}

// parseLoadForecast handles the wide layout: one column per zone, one row
// per hour. The publisher-wide "NYISO" total column is dropped; per-zone
// nulls emit no record.
func parseLoadForecast(decoder *csvutil.Decoder, header []string, src models.DataSourceConfig) (*ParseResult, error) {
	if !hasColumn(header, "time_stamp") {
		return nil, &ParseError{Source: src.Name, Reason: "forecast file missing time_stamp column"}
	}
	zoneColumns := 0
	for _, col := range header {
		if !reservedColumns[col] {
			zoneColumns++
		}
	}
	if zoneColumns == 0 {
		return nil, &ParseError{Source: src.Name, Reason: "forecast file has no zone columns"}
	}

	result := &ParseResult{}
	var records []models.ForecastRecord
	for {
		var row timestampRow
		if err := decoder.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			result.RowCount++
			result.Skipped++
			continue
		}
		result.RowCount++

		ts, err := parseTimestamp(row.TimeStamp)
		if err != nil {
			result.Skipped++
			continue
		}

		record := decoder.Record()
		for _, i := range decoder.Unused() {
			if reservedColumns[header[i]] {
				continue
			}
			zone := utils.NormalizeZoneName(header[i])
			if zone == "" || zone == "NYISO" {
				continue
			}
			value := parseFloat(record[i])
			if value == nil {
				continue
			}
			records = append(records, models.ForecastRecord{
				Timestamp: ts,
				ZoneName:  zone,
				Forecast:  value,
			})
		}
	}

	result.Records = records
	return result, nil
}

type interfaceFlowRow struct {
	TimeStamp     string `csv:"time_stamp"`
	InterfaceName string `csv:"interface_name"`
	PointID       string `csv:"point_id"`
	Flow          string `csv:"flow"`
	PositiveLimit string `csv:"positive_limit"`
	NegativeLimit string `csv:"negative_limit"`
}

func parseInterfaceFlows(decoder *csvutil.Decoder, header []string, src models.DataSourceConfig) (*ParseResult, error) {
	for _, required := range []string{"time_stamp", "interface_name", "flow"} {
		if !hasColumn(header, required) {
			return nil, &ParseError{Source: src.Name, Reason: fmt.Sprintf("interface flow file missing %s column", required)}
		}
	}

	result := &ParseResult{}
	var records []models.FlowRecord
	for {
		var row interfaceFlowRow
		if err := decoder.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			result.RowCount++
			result.Skipped++
			continue
		}
		result.RowCount++

		ts, err := parseTimestamp(row.TimeStamp)
		if err != nil {
			result.Skipped++
			continue
		}
		name := utils.NormalizeInterfaceName(row.InterfaceName)
		if name == "" {
			result.Skipped++
			continue
		}

		records = append(records, models.FlowRecord{
			Timestamp:     ts,
			InterfaceName: name,
			PointID:       parseInt(row.PointID),
			Flow:          parseFloat(row.Flow),
			PositiveLimit: parseFloat(row.PositiveLimit),
			NegativeLimit: parseFloat(row.NegativeLimit),
		})
	}

	result.Records = records
	return result, nil
}

type ancillaryRow struct {
	TimeStamp string `csv:"time_stamp"`
	TimeZone  string `csv:"time_zone"`
	Name      string `csv:"name"`
	PTID      string `csv:"ptid"`
}

// Published service-price columns mapped to stored service keys. Matching
// ignores the unit suffix and casing; unrecognized columns are ignored so a
// new publisher column never breaks ingestion.
var serviceColumnAliases = map[string]string{
	"10 min spinning reserve":        "spinning_reserve",
	"10 min non-synchronous reserve": "non_sync_reserve",
	"30 min operating reserve":       "operating_reserve",
	"nyca regulation capacity":       "regulation_capacity",
	"nyca regulation movement":       "regulation_movement",
	"regulation capacity":            "regulation_capacity",
	"regulation movement":            "regulation_movement",
}

func serviceKeyForColumn(col string) (string, bool) {
	key := strings.ToLower(stripUnits(strings.TrimSpace(col)))
	key = strings.Join(strings.Fields(key), " ")
	svc, ok := serviceColumnAliases[key]
	return svc, ok
}

// parseAncillaryPrices folds the wide service columns long: each recognized
// (row, service) cell becomes one record. Null and zero cells emit nothing;
// the publisher pads the grid with zeros for services a zone doesn't clear.
func parseAncillaryPrices(decoder *csvutil.Decoder, header []string, src models.DataSourceConfig) (*ParseResult, error) {
	for _, required := range []string{"time_stamp", "name"} {
		if !hasColumn(header, required) {
			return nil, &ParseError{Source: src.Name, Reason: fmt.Sprintf("ancillary file missing %s column", required)}
		}
	}
	recognized := 0
	for _, col := range header {
		if _, ok := serviceKeyForColumn(col); ok {
			recognized++
		}
	}
	if recognized == 0 {
		return nil, &ParseError{Source: src.Name, Reason: "ancillary file has no recognized service columns"}
	}

	result := &ParseResult{}
	var records []models.AncillaryRecord
	for {
		var row ancillaryRow
		if err := decoder.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			result.RowCount++
			result.Skipped++
			continue
		}
		result.RowCount++

		ts, err := parseTimestamp(row.TimeStamp)
		if err != nil {
			result.Skipped++
			continue
		}
		zone := utils.NormalizeZoneName(row.Name)
		if zone == "" {
			result.Skipped++
			continue
		}
		ptid := parseInt(row.PTID)

		record := decoder.Record()
		for _, i := range decoder.Unused() {
			service, ok := serviceKeyForColumn(header[i])
			if !ok {
				continue
			}
			price := parseFloat(record[i])
			if price == nil || *price == 0 {
				continue
			}
			records = append(records, models.AncillaryRecord{
				Timestamp: ts,
				ZoneName:  zone,
				PTID:      ptid,
				Market:    src.Market,
				Service:   service,
				Price:     price,
			})
		}
	}

	result.Records = records
	return result, nil
}

type fuelMixRow struct {
	TimeStamp    string `csv:"time_stamp"`
	TimeZone     string `csv:"time_zone"`
	FuelCategory string `csv:"fuel_category"`
	GenMW        string `csv:"gen_mw"`
}

// parseFuelMix handles both published layouts. The long layout has one
// (Fuel Category, Gen MW) row per fuel and hour; the wide layout has one
// column per fuel. The header decides which one is present.
func parseFuelMix(decoder *csvutil.Decoder, header []string, src models.DataSourceConfig) (*ParseResult, error) {
	if !hasColumn(header, "time_stamp") {
		return nil, &ParseError{Source: src.Name, Reason: "fuel mix file missing time_stamp column"}
	}
	if hasColumn(header, "fuel_category") && hasColumn(header, "gen_mw") {
		return parseFuelMixLong(decoder, src)
	}
	return parseFuelMixWide(decoder, header, src)
}

func parseFuelMixLong(decoder *csvutil.Decoder, src models.DataSourceConfig) (*ParseResult, error) {
	result := &ParseResult{}
	var records []models.FuelMixRecord
	for {
		var row fuelMixRow
		if err := decoder.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			result.RowCount++
			result.Skipped++
			continue
		}
		result.RowCount++

		ts, err := parseTimestamp(row.TimeStamp)
		if err != nil {
			result.Skipped++
			continue
		}
		fuel := utils.NormalizeFuelName(row.FuelCategory)
		if fuel == "" {
			result.Skipped++
			continue
		}
		gen := parseFloat(row.GenMW)
		if gen == nil {
			continue
		}

		records = append(records, models.FuelMixRecord{
			Timestamp: ts,
			FuelName:  fuel,
			GenMW:     gen,
		})
	}

	result.Records = records
	return result, nil
}

func parseFuelMixWide(decoder *csvutil.Decoder, header []string, src models.DataSourceConfig) (*ParseResult, error) {
	fuelColumns := 0
	for _, col := range header {
		if !reservedColumns[col] {
			fuelColumns++
		}
	}
	if fuelColumns == 0 {
		return nil, &ParseError{Source: src.Name, Reason: "fuel mix file has no fuel columns"}
	}

	result := &ParseResult{}
	var records []models.FuelMixRecord
	for {
		var row timestampRow
		if err := decoder.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			result.RowCount++
			result.Skipped++
			continue
		}
		result.RowCount++

		ts, err := parseTimestamp(row.TimeStamp)
		if err != nil {
			result.Skipped++
			continue
		}

		record := decoder.Record()
		for _, i := range decoder.Unused() {
			if reservedColumns[header[i]] {
				continue
			}
			fuel := utils.NormalizeFuelName(header[i])
			if fuel == "" {
				continue
			}
			gen := parseFloat(record[i])
			if gen == nil || *gen == 0 {
				continue
			}
			records = append(records, models.FuelMixRecord{
				Timestamp: ts,
				FuelName:  fuel,
				GenMW:     gen,
			})
		}
	}

	result.Records = records
	return result, nil
}
