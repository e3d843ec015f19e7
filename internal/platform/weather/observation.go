package weather

import "strconv"

type Condition string

const (
	ConditionClear        Condition = "CLEAR"
	ConditionMostlyCloudy Condition = "MOSTLY_CLOUDY"
	ConditionOvercast     Condition = "OVERCAST"
	ConditionUnknown      Condition = "UNKNOWN"
)

// Observation is one nowcast reading for a grid point. Fields the upstream
// did not report stay nil.
type Observation struct {
	X           int       `json:"x"`
	Y           int       `json:"y"`
	BaseDate    string    `json:"base_date"`
	BaseTime    string    `json:"base_time"`
	Temperature *float64  `json:"temperature,omitempty"`
	Rainfall    *float64  `json:"rainfall,omitempty"`
	Humidity    *float64  `json:"humidity,omitempty"`
	Sky         Condition `json:"condition"`
}

const (
	categoryTemperature = "T1H"
	categoryRainfall    = "RN1"
	categoryHumidity    = "REH"
	categorySky         = "SKY"
)

func skyCondition(code string) Condition {
	switch code {
	case "1":
		return ConditionClear
	case "3":
		return ConditionMostlyCloudy
	case "4":
		return ConditionOvercast
	default:
		return ConditionUnknown
	}
}

// apply folds one category/value pair into o. Unknown categories and
// unparseable values are ignored.
func (o *Observation) apply(category, value string) {
	if category == categorySky {
		o.Sky = skyCondition(value)
		return
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return
	}
	switch category {
	case categoryTemperature:
		o.Temperature = &f
	case categoryRainfall:
		o.Rainfall = &f
	case categoryHumidity:
		o.Humidity = &f
	}
}
