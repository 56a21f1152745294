package formulas

import "github.com/markcheno/go-talib"

// CalculateRSI calculates the Relative Strength Index (0-100)
//
//	RSI = 100 - (100 / (1 + RS)), RS = average gain / average loss over length periods
//
// Returns nil if there are not at least length+1 closes.
func CalculateRSI(closes []float64, length int) *float64 {
	if length <= 0 || len(closes) < length+1 {
		return nil
	}

	rsi := talib.Rsi(closes, length)
	return last(rsi)
}
