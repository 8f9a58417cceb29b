package render

import (
	"math"
	"math/big"

	"github.com/kjstillabower/pws-history-proxy/internal/models"
)

// Placeholder is shown for missing or non-numeric values.
const Placeholder = "—"

// Fmt formats v with a fixed number of decimals, rounding the exact binary value to
// nearest with ties away from zero. nil, NaN and infinities render as Placeholder.
func Fmt(v *float64, digits int) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return Placeholder
	}
	if digits < 0 {
		digits = 0
	}
	return new(big.Rat).SetFloat64(*v).FloatString(digits)
}

// TimeLabel prefers the local observation time, then UTC, then "".
func TimeLabel(r models.ObservationRecord) string {
	if r.ObsTimeLocal != "" {
		return r.ObsTimeLocal
	}
	return r.ObsTimeUTC
}
