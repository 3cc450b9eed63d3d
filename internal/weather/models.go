package weather

// Field names a numeric observation column shared by the raw provider
// file and the aggregate output.
type Field string

const (
	FieldDailyRain Field = "daily_rain"
	FieldMaxTemp   Field = "max_temp"
	FieldMinTemp   Field = "min_temp"
	FieldRadiation Field = "radiation"
	FieldRHTmax    Field = "rh_tmax"
	FieldRHTmin    Field = "rh_tmin"
)

// Fields lists the numeric fields in output column order.
var Fields = []Field{
	FieldDailyRain,
	FieldMaxTemp,
	FieldMinTemp,
	FieldRadiation,
	FieldRHTmax,
	FieldRHTmin,
}

const (
	// ColumnStation and ColumnDate are the provider's key columns.
	ColumnStation = "station"
	ColumnDate    = "YYYY-MM-DD"
	// ColumnRegion is the region column of the catalog and aggregate files.
	ColumnRegion = "state"
)

// Station is one cataloged observation point. ID is unique within a region only.
type Station struct {
	ID     string `json:"stationId"`
	Name   string `json:"stationName"`
	Region string `json:"state"`
}

const fieldCount = 6

// Values holds the numeric fields of a record in Fields order. A nil entry is a missing value.
type Values [fieldCount]*float64

// Get returns the value stored for f.
func (v Values) Get(f Field) *float64 {
	for i, name := range Fields {
		if name == f {
			return v[i]
		}
	}
	return nil
}

// RawObservation is one station's reported values for one calendar date.
type RawObservation struct {
	StationID string
	Date      string
	Values    Values
}

// RegionDayAggregate holds the per-field means of every station in a region on a date.
type RegionDayAggregate struct {
	Region string `json:"state"`
	Date   string `json:"date"`

	DailyRain *float64 `json:"dailyRain"`
	MaxTemp   *float64 `json:"maxTemp"`
	MinTemp   *float64 `json:"minTemp"`
	Radiation *float64 `json:"radiation"`
	RHTmax    *float64 `json:"rhTmax"`
	RHTmin    *float64 `json:"rhTmin"`
}

// Values returns the aggregate's means in Fields order.
func (a RegionDayAggregate) Values() Values {
	return Values{a.DailyRain, a.MaxTemp, a.MinTemp, a.Radiation, a.RHTmax, a.RHTmin}
}

func (a *RegionDayAggregate) setValues(v Values) {
	a.DailyRain = v[0]
	a.MaxTemp = v[1]
	a.MinTemp = v[2]
	a.Radiation = v[3]
	a.RHTmax = v[4]
	a.RHTmin = v[5]
}

// regionDay keys the aggregation groups.
type regionDay struct {
	region string
	date   string
}

// stationDay keys per-station groups before region resolution.
type stationDay struct {
	station string
	date    string
}
