// Package normalize maps Weather.com PWS history payloads onto fixed
// ObservationRecord rows.
//
// The upstream schema varies with the requested unit system (the unit-specific
// values live under "metric", "metric_si", "uk_hybrid" or "imperial") and with the
// endpoint version (older payloads carry flat "temperature"/"humidity" fields). Each
// output field is read through an ordered list of paths; the first present, non-null
// value wins and anything else yields nil.
package normalize

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/pws-history-proxy/internal/models"
)

// path addresses a value inside one observation object.
type path []string

// chain is an ordered list of fallback paths for one field.
type chain []path

// unitBlocks are the per-unit-system sub-objects, in preference order.
var unitBlocks = []string{"metric", "metric_si", "uk_hybrid", "imperial"}

func unitChain(field string, flat ...string) chain {
	c := make(chain, 0, len(unitBlocks)+len(flat))
	for _, block := range unitBlocks {
		c = append(c, path{block, field})
	}
	for _, f := range flat {
		c = append(c, path{f})
	}
	return c
}

var (
	tempAvgChain      = unitChain("tempAvg", "temperature")
	dewptAvgChain     = unitChain("dewptAvg")
	windspeedAvgChain = unitChain("windspeedAvg")
	windgustHighChain = unitChain("windgustHigh")
	pressureMaxChain  = unitChain("pressureMax")
	precipTotalChain  = unitChain("precipTotal")
	humidityAvgChain  = chain{{"humidityAvg"}, {"humidity"}}

	obsTimeLocalChain = chain{{"obsTimeLocal"}, {"obsTimeLocalStr"}}
	obsTimeUTCChain   = chain{{"obsTimeUtc"}}
	epochChain        = chain{{"epoch"}}
)

// Normalize decodes body and normalizes it. Invalid JSON and unexpected shapes
// yield an empty slice, never nil and never an error.
func Normalize(body []byte) []models.ObservationRecord {
	if !json.Valid(body) {
		return []models.ObservationRecord{}
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return []models.ObservationRecord{}
	}
	return FromValue(v)
}

// FromValue normalizes an already-decoded payload: either an object whose
// "observations" field is an array, or a bare array.
func FromValue(v any) []models.ObservationRecord {
	var items []any
	switch t := v.(type) {
	case map[string]any:
		items, _ = t["observations"].([]any)
	case []any:
		items = t
	}

	out := make([]models.ObservationRecord, 0, len(items))
	for _, item := range items {
		obj, _ := item.(map[string]any)
		out = append(out, record(obj))
	}
	return out
}

func record(obj map[string]any) models.ObservationRecord {
	r := models.ObservationRecord{
		ObsTimeLocal: obsTimeLocalChain.str(obj),
		ObsTimeUTC:   obsTimeUTCChain.str(obj),
		TempAvg:      tempAvgChain.number(obj),
		DewptAvg:     dewptAvgChain.number(obj),
		HumidityAvg:  humidityAvgChain.number(obj),
		WindspeedAvg: windspeedAvgChain.number(obj),
		WindgustHigh: windgustHighChain.number(obj),
		PressureMax:  pressureMaxChain.number(obj),
		PrecipTotal:  precipTotalChain.number(obj),
	}
	r.Epoch = epoch(obj, r.ObsTimeUTC)
	return r
}

// first returns the first present, non-null value along the chain.
func (c chain) first(obj map[string]any) (any, bool) {
	for _, p := range c {
		if v, ok := lookup(obj, p); ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// number returns the chain's first value as a float, or nil when that value is not
// numeric. A non-numeric value stops the chain; it does not fall through.
func (c chain) number(obj map[string]any) *float64 {
	v, ok := c.first(obj)
	if !ok {
		return nil
	}
	f, ok := toFloat(v)
	if !ok {
		return nil
	}
	return &f
}

// str returns the first non-empty string along the chain, or "".
func (c chain) str(obj map[string]any) string {
	for _, p := range c {
		if v, ok := lookup(obj, p); ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func lookup(obj map[string]any, p path) (any, bool) {
	var cur any = obj
	for _, key := range p {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// epoch prefers a non-zero "epoch" value that fits in int64 and falls back to
// obsTimeUtc parsed as RFC 3339.
func epoch(obj map[string]any, obsTimeUTC string) *int64 {
	if v, ok := epochChain.first(obj); ok {
		if f, ok := toFloat(v); ok && f != 0 && f >= math.MinInt64 && f < math.MaxInt64 {
			e := int64(f)
			return &e
		}
	}
	if obsTimeUTC == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, obsTimeUTC)
	if err != nil {
		return nil
	}
	e := ts.Unix()
	return &e
}
