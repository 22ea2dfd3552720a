// Package charts serves the canned series and headline figures shown on the
// results view.
package charts

// HourlyPoint compares an observed and a predicted temperature
type HourlyPoint struct {
	Time      string  `json:"time"`
	Temp      float64 `json:"temp"`
	Predicted float64 `json:"predicted"`
}

// MonthlyPoint is a monthly average temperature
type MonthlyPoint struct {
	Month   string  `json:"month"`
	AvgTemp float64 `json:"avgTemp"`
}

// Stat is a headline figure
type Stat struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Data bundles everything the results view renders
type Data struct {
	Hourly  []HourlyPoint  `json:"hourly"`
	Monthly []MonthlyPoint `json:"monthly"`
	Stats   []Stat         `json:"stats"`
}

// Hourly returns observed vs predicted temperatures at four-hour steps
func Hourly() []HourlyPoint {
	return []HourlyPoint{
		{Time: "00:00", Temp: 18.5, Predicted: 19.0},
		{Time: "04:00", Temp: 16.2, Predicted: 16.8},
		{Time: "08:00", Temp: 19.8, Predicted: 20.2},
		{Time: "12:00", Temp: 25.3, Predicted: 24.8},
		{Time: "16:00", Temp: 27.1, Predicted: 26.5},
		{Time: "20:00", Temp: 22.4, Predicted: 23.0},
	}
}

// Monthly returns average temperatures for the first half of the year
func Monthly() []MonthlyPoint {
	return []MonthlyPoint{
		{Month: "Jan", AvgTemp: 15.2},
		{Month: "Feb", AvgTemp: 16.8},
		{Month: "Mar", AvgTemp: 19.3},
		{Month: "Apr", AvgTemp: 22.1},
		{Month: "May", AvgTemp: 25.7},
		{Month: "Jun", AvgTemp: 28.9},
	}
}

// Stats returns the headline figures
func Stats() []Stat {
	return []Stat{
		{Label: "Avg Accuracy", Value: "94.7%"},
		{Label: "Predictions Today", Value: "127"},
		{Label: "Models Running", Value: "3"},
	}
}

// All returns every series in one bundle
func All() Data {
	return Data{Hourly: Hourly(), Monthly: Monthly(), Stats: Stats()}
}
