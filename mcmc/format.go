package mcmc

import (
	"fmt"
	"math"
)

// FmtValErr formats a value and its error in compact parenthesis
// notation, e.g. FmtValErr(0.12345, 0.0067, 2) == "0.1234(67)". The
// error is shown with errDigits significant digits and the value is
// rounded to match.
func FmtValErr(val, err float64, errDigits int) string {
	if errDigits < 1 {
		errDigits = 1
	}
	if err == 0 || math.IsNaN(err) || math.IsInf(err, 0) || math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Sprintf("%g(?)", val)
	}
	err = math.Abs(err)
	decimals := errDigits - 1 - int(math.Floor(math.Log10(err)))
	if decimals < 0 {
		decimals = 0
	}
	scale := math.Pow(10, float64(decimals))
	errInt := int64(math.Round(err * scale))
	return fmt.Sprintf("%.*f(%d)", decimals, val, errInt)
}
