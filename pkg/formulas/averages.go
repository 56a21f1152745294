// Package formulas holds technical indicators over closing prices.
// Inputs are ordered oldest first.
package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// CalculateSMA calculates the Simple Moving Average of the last length closes.
// Returns nil if there are fewer than length closes.
func CalculateSMA(closes []float64, length int) *float64 {
	if length <= 0 || len(closes) < length {
		return nil
	}

	sma := talib.Sma(closes, length)
	return last(sma)
}

// CalculateEMA calculates the Exponential Moving Average
//
//	EMA_today = (Price_today × k) + (EMA_yesterday × (1 - k)), k = 2 / (length + 1)
//
// With fewer than length closes it falls back to the mean of what is there.
func CalculateEMA(closes []float64, length int) *float64 {
	if len(closes) == 0 || length <= 0 {
		return nil
	}
	if len(closes) < length {
		mean := Mean(closes)
		return &mean
	}

	ema := talib.Ema(closes, length)
	if v := last(ema); v != nil {
		return v
	}

	mean := Mean(closes[len(closes)-length:])
	return &mean
}

// last returns the final value of a talib output, or nil while it is still warming up
func last(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	v := series[len(series)-1]
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
