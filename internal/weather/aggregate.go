package weather

import "strconv"

// AggregateReport counts what a single aggregation pass kept and discarded.
type AggregateReport struct {
	StationDays         int `json:"stationDays"`
	UnmappedStationDays int `json:"unmappedStationDays"`
	Aggregates          int `json:"aggregates"`
}

// AggregateRegionDays groups observations by (station, date), resolves each
// station to its region and averages every numeric field per (region, date).
//
// Station-days whose station has no region are dropped without error.
// Means only count non-null values and are rounded to two decimals; a field
// with no values stays nil. Output follows first-seen order.
func AggregateRegionDays(observations []RawObservation, regions map[string]string) ([]RegionDayAggregate, AggregateReport) {
	var report AggregateReport

	stationOrder := make([]stationDay, 0)
	byStation := make(map[stationDay][]Values)
	for _, obs := range observations {
		k := stationDay{station: obs.StationID, date: obs.Date}
		if _, ok := byStation[k]; !ok {
			stationOrder = append(stationOrder, k)
		}
		byStation[k] = append(byStation[k], obs.Values)
	}
	report.StationDays = len(stationOrder)

	regionOrder := make([]regionDay, 0)
	byRegion := make(map[regionDay][]Values)
	for _, sk := range stationOrder {
		region, ok := regions[sk.station]
		if !ok || region == "" {
			report.UnmappedStationDays++
			continue
		}

		rk := regionDay{region: region, date: sk.date}
		if _, ok := byRegion[rk]; !ok {
			regionOrder = append(regionOrder, rk)
		}
		byRegion[rk] = append(byRegion[rk], byStation[sk]...)
	}

	out := make([]RegionDayAggregate, 0, len(regionOrder))
	for _, rk := range regionOrder {
		agg := RegionDayAggregate{Region: rk.region, Date: rk.date}
		agg.setValues(meanValues(byRegion[rk]))
		out = append(out, agg)
	}
	report.Aggregates = len(out)

	return out, report
}

// meanValues averages each field over the records that carry it.
func meanValues(records []Values) Values {
	var (
		sums   [fieldCount]float64
		counts [fieldCount]int
		out    Values
	)

	for _, rec := range records {
		for i, v := range rec {
			if v == nil {
				continue
			}
			sums[i] += *v
			counts[i]++
		}
	}

	for i := range out {
		if counts[i] == 0 {
			continue
		}
		mean := round2(sums[i] / float64(counts[i]))
		out[i] = &mean
	}
	return out
}

// round2 rounds to two decimals, ties to even on the exact binary value.
func round2(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return r
}
