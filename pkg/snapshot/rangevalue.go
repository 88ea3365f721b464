package snapshot

import (
	"math"
	"strconv"
	"strings"
)

// Range defaults applied when min, max or step are missing or invalid.
const (
	DefaultRangeMin  = 0.0
	DefaultRangeMax  = 100.0
	DefaultRangeStep = 1.0
)

// RangeValue returns the value a browser reports for a range input with
// the given attributes. An invalid value becomes the midpoint of min and
// max; the result is clamped to the bounds and snapped to the nearest step
// counted from min, ties going up.
func RangeValue(value, min, max, step string) string {
	lo, ok := parseFloat(min)
	if !ok {
		lo = DefaultRangeMin
	}
	hi, ok := parseFloat(max)
	if !ok {
		hi = DefaultRangeMax
	}
	if hi < lo {
		hi = lo
	}

	v, ok := parseFloat(value)
	if !ok {
		v = lo + (hi-lo)/2
	}
	v = math.Min(math.Max(v, lo), hi)

	if strings.EqualFold(strings.TrimSpace(step), "any") {
		return formatFloat(v, -1)
	}
	st, ok := parseFloat(step)
	if !ok || st <= 0 {
		st = DefaultRangeStep
	}
	top := lo + math.Floor((hi-lo)/st+1e-9)*st
	v = lo + math.Floor((v-lo)/st+0.5)*st
	if v > top {
		v = top
	}
	if v < lo {
		v = lo
	}
	return formatFloat(v, places(min, step))
}

// parseFloat accepts the HTML floating-point number syntax: no leading
// plus, no hex, no infinities.
func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s[0] == '+' {
		return 0, false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789.-+eE", r) {
			return 0, false
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// decimals counts fraction digits of a plain decimal literal. Exponent
// forms report -1 so no rounding is applied.
func decimals(s string) int {
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, "eE") {
		return -1
	}
	if _, frac, ok := strings.Cut(s, "."); ok {
		return len(frac)
	}
	return 0
}

func formatFloat(v float64, places int) string {
	if places >= 0 {
		rounded, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
		if err == nil {
			v = rounded
		}
	}
	if v == 0 {
		v = 0 // drop negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// places is the precision of min and step combined, or -1 when either
// uses an exponent.
func places(min, step string) int {
	a, b := decimals(min), decimals(step)
	if a < 0 || b < 0 {
		return -1
	}
	return max(a, b)
}
