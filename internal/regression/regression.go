// Package regression fits the linear temperature model served by the
// predictor simulator: TEMP = b0 + b1*MONTH + b2*HOUR, solved by ordinary
// least squares.
package regression

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrTooFewSamples is returned when there are fewer samples than coefficients
var ErrTooFewSamples = errors.New("not enough samples to fit the model")

// Sample is one observation. Temp is in degrees Celsius.
type Sample struct {
	Month int
	Hour  int
	Temp  float64
}

// Model holds the fitted coefficients
type Model struct {
	Intercept float64 `json:"intercept"`
	Month     float64 `json:"month"`
	Hour      float64 `json:"hour"`
	RSquared  float64 `json:"r_squared"`
	Samples   int     `json:"samples"`
}

// Predict returns the modelled temperature in degrees Celsius
func (m *Model) Predict(month, hour int) float64 {
	return m.Intercept + m.Month*float64(month) + m.Hour*float64(hour)
}

// Fit solves the least-squares problem for samples using a QR decomposition
func Fit(samples []Sample) (*Model, error) {
	n := len(samples)
	if n < 3 {
		return nil, ErrTooFewSamples
	}

	X := mat.NewDense(n, 3, nil)
	temps := make([]float64, n)
	for i, s := range samples {
		X.Set(i, 0, 1)
		X.Set(i, 1, float64(s.Month))
		X.Set(i, 2, float64(s.Hour))
		temps[i] = s.Temp
	}
	y := mat.NewVecDense(n, temps)

	var qr mat.QR
	qr.Factorize(X)

	coeffs := mat.NewVecDense(3, nil)
	if err := qr.SolveVecTo(coeffs, false, y); err != nil {
		return nil, fmt.Errorf("solving regression: %w", err)
	}

	m := &Model{
		Intercept: coeffs.AtVec(0),
		Month:     coeffs.AtVec(1),
		Hour:      coeffs.AtVec(2),
		Samples:   n,
	}

	fitted := make([]float64, n)
	for i, s := range samples {
		fitted[i] = m.Predict(s.Month, s.Hour)
	}
	m.RSquared = stat.RSquaredFrom(fitted, temps, nil)

	return m, nil
}

// LoadSamples reads a whitespace-separated table whose header names at least
// the MONTH, HOUR and TEMP columns. TEMP is in tenths of a degree.
func LoadSamples(r io.Reader) ([]Sample, error) {
	scanner := bufio.NewScanner(r)

	var monthCol, hourCol, tempCol = -1, -1, -1
	var samples []Sample
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		if monthCol < 0 {
			for i, f := range fields {
				switch strings.ToUpper(f) {
				case "MONTH":
					monthCol = i
				case "HOUR":
					hourCol = i
				case "TEMP":
					tempCol = i
				}
			}
			if monthCol < 0 || hourCol < 0 || tempCol < 0 {
				return nil, fmt.Errorf("line %d: header must name MONTH, HOUR and TEMP columns", line)
			}
			continue
		}

		s, err := parseRow(fields, monthCol, hourCol, tempCol)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if monthCol < 0 {
		return nil, fmt.Errorf("no header found")
	}
	return samples, nil
}

func parseRow(fields []string, monthCol, hourCol, tempCol int) (Sample, error) {
	need := max(monthCol, hourCol, tempCol) + 1
	if len(fields) < need {
		return Sample{}, fmt.Errorf("expected at least %d columns, got %d", need, len(fields))
	}

	month, err := strconv.Atoi(fields[monthCol])
	if err != nil {
		return Sample{}, fmt.Errorf("invalid MONTH %q", fields[monthCol])
	}
	hour, err := strconv.Atoi(fields[hourCol])
	if err != nil {
		return Sample{}, fmt.Errorf("invalid HOUR %q", fields[hourCol])
	}
	temp, err := strconv.ParseFloat(fields[tempCol], 64)
	if err != nil || math.IsNaN(temp) || math.IsInf(temp, 0) {
		return Sample{}, fmt.Errorf("invalid TEMP %q", fields[tempCol])
	}

	return Sample{Month: month, Hour: hour, Temp: temp / 10}, nil
}

// SampleData returns a synthetic year of hourly observations with a seasonal
// and a diurnal cycle, used when no data file is given.
func SampleData() []Sample {
	samples := make([]Sample, 0, 12*24)
	for month := 1; month <= 12; month++ {
		seasonal := 8 * math.Sin(2*math.Pi*float64(month-4)/12)
		for hour := 0; hour < 24; hour++ {
			diurnal := 5 * math.Sin(2*math.Pi*float64(hour-9)/24)
			t := 15 + seasonal + diurnal
			samples = append(samples, Sample{Month: month, Hour: hour, Temp: math.Round(t*10) / 10})
		}
	}
	return samples
}
