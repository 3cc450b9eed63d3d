package weather

import (
	"strings"
	"testing"
)

const siloHeader = "station,YYYY-MM-DD,daily_rain,daily_rain_source,max_temp,max_temp_source,min_temp,min_temp_source,radiation,radiation_source,rh_tmax,rh_tmax_source,rh_tmin,rh_tmin_source,metadata"

func TestReadObservationsDropsRowsWithBadNumbers(t *testing.T) {
	raw := strings.Join([]string{
		siloHeader,
		"40004,2024-01-01,0.2,25,31.5,25,19.0,25,27.1,25,80.2,25,40.1,25,name=Amberley",
		"40004,2024-01-02,n/a,25,31.5,25,19.0,25,27.1,25,80.2,25,40.1,25,",
		"40004,2024-01-03,1.0,25,31.5,25,19.0,25,27.1,25,80.2,25,abc,25,",
	}, "\n")

	got, report, err := ReadObservations(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(got))
	}
	if report.BadNumber != 2 || report.Rows != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}

	o := got[0]
	if o.StationID != "40004" || o.Date != "2024-01-01" {
		t.Fatalf("unexpected key %s/%s", o.StationID, o.Date)
	}
	assertValue(t, "daily_rain", o.Values.Get(FieldDailyRain), f64(0.2))
	assertValue(t, "max_temp", o.Values.Get(FieldMaxTemp), f64(31.5))
	assertValue(t, "min_temp", o.Values.Get(FieldMinTemp), f64(19))
	assertValue(t, "radiation", o.Values.Get(FieldRadiation), f64(27.1))
	assertValue(t, "rh_tmax", o.Values.Get(FieldRHTmax), f64(80.2))
	assertValue(t, "rh_tmin", o.Values.Get(FieldRHTmin), f64(40.1))
}

func TestReadObservationsDropsRowsWithoutKey(t *testing.T) {
	raw := strings.Join([]string{
		"station,YYYY-MM-DD,max_temp",
		" ,2024-01-01,30",
		"S1,,30",
		"S1,  2024-01-01 ,  30 ",
	}, "\n")

	got, report, err := ReadObservations(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.MissingKey != 2 {
		t.Fatalf("expected 2 rows without key, got %+v", report)
	}
	if len(got) != 1 || got[0].Date != "2024-01-01" {
		t.Fatalf("unexpected observations: %+v", got)
	}
	assertValue(t, "max_temp", got[0].Values.Get(FieldMaxTemp), f64(30))
	// Columns absent from the header are null, not errors.
	assertValue(t, "daily_rain", got[0].Values.Get(FieldDailyRain), nil)
}

func TestReadObservationsRebindsOnRepeatedHeader(t *testing.T) {
	// Two appended provider responses with differing column order.
	raw := strings.Join([]string{
		"station,YYYY-MM-DD,max_temp,min_temp",
		"S1,2024-01-01,30,10",
		"YYYY-MM-DD,station,min_temp,max_temp",
		"2024-01-01,S2,12,34",
	}, "\n") + "\n"

	got, report, err := ReadObservations(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.HeaderRows != 2 || report.Dropped() != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(got))
	}
	if got[1].StationID != "S2" {
		t.Fatalf("second response not re-bound: %+v", got[1])
	}
	assertValue(t, "max_temp", got[1].Values.Get(FieldMaxTemp), f64(34))
	assertValue(t, "min_temp", got[1].Values.Get(FieldMinTemp), f64(12))
}

func TestReadObservationsShortRowsAreNull(t *testing.T) {
	raw := "station,YYYY-MM-DD,daily_rain,max_temp\nS1,2024-01-01\n"

	got, _, err := ReadObservations(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(got))
	}
	for i, v := range got[0].Values {
		if v != nil {
			t.Errorf("field %s: expected null", Fields[i])
		}
	}
}

func TestReadObservationsEmptyInput(t *testing.T) {
	got, report, err := ReadObservations(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 || report.Rows != 0 {
		t.Fatalf("expected nothing, got %d observations (%+v)", len(got), report)
	}
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		in   *float64
		want string
	}{
		{nil, ""},
		{f64(32), "32.0"},
		{f64(12.35), "12.35"},
		{f64(-0.5), "-0.5"},
		{f64(0), "0.0"},
	}
	for _, tc := range cases {
		if got := FormatValue(tc.in); got != tc.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestReadAggregatesSkipsRepeatedHeaderAndBadRows(t *testing.T) {
	raw := strings.Join([]string{
		"state,YYYY-MM-DD,daily_rain,max_temp,min_temp,radiation,rh_tmax,rh_tmin",
		"VIC,2024-01-01,,32.0,,,,",
		"state,YYYY-MM-DD,daily_rain,max_temp,min_temp,radiation,rh_tmax,rh_tmin",
		"NSW,2024-01-01,1.25,x,,,,",
		",2024-01-01,1,,,,,",
		"NSW,2024-01-02,1.25,28.1,14.0,20.5,70.0,35.5",
	}, "\n")

	got, err := ReadAggregates(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 aggregates, got %d", len(got))
	}
	assertValue(t, "max_temp", got[0].MaxTemp, f64(32))
	assertValue(t, "daily_rain", got[0].DailyRain, nil)
	if got[1].Region != "NSW" || got[1].Date != "2024-01-02" {
		t.Fatalf("unexpected aggregate: %+v", got[1])
	}
	assertValue(t, "rh_tmin", got[1].RHTmin, f64(35.5))
}
