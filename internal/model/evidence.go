package model

import (
	"encoding/json"

	"github.com/spf13/cast"
)

// Evidence is one factual data point backing an answer. Structured
// evidence carries the five-field tuple the validator can compare against
// derived rows; evidence in a shape the parser does not recognize is kept
// opaque (Raw set) rather than dropped, and never matches during
// validation.
type Evidence struct {
	Code   string  `json:"code"`
	Name   string  `json:"sname"`
	Date   string  `json:"tdate"`
	Value  float64 `json:"value"`
	Metric string  `json:"metric"`

	// Raw holds the original value for evidence the parser could not
	// map onto the structured tuple. When non-nil the tuple fields are
	// meaningless.
	Raw any `json:"-"`
}

// Structured reports whether the evidence carries a comparable tuple.
func (e Evidence) Structured() bool {
	return e.Raw == nil
}

// Key aliases accepted for each tuple field. The corpora this tool
// ingests use per-domain column names (financial vs. medical); the
// entity_id set is the fallback the source used for everything else.
var (
	codeKeys   = []string{"code", "patient_id", "entity_id"}
	nameKeys   = []string{"sname", "name", "entity_name"}
	dateKeys   = []string{"tdate", "timestamp", "date"}
	valueKeys  = []string{"value"}
	metricKeys = []string{"metric", "variable_name", "table_type"}
)

func firstString(m map[string]any, keys []string) (string, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return cast.ToString(v), true
		}
	}
	return "", false
}

// EvidenceFromMap builds structured evidence from a key/value mapping,
// resolving per-domain column aliases. Returns false when the mapping
// does not carry a recognizable tuple.
func EvidenceFromMap(m map[string]any) (Evidence, bool) {
	var e Evidence
	var okCode, okValue bool
	e.Code, okCode = firstString(m, codeKeys)
	e.Name, _ = firstString(m, nameKeys)
	e.Date, _ = firstString(m, dateKeys)
	e.Metric, _ = firstString(m, metricKeys)
	if v, ok := m["value"]; ok {
		if f, err := cast.ToFloat64E(v); err == nil {
			e.Value = f
			okValue = true
		}
	}
	if !okCode && !okValue {
		return Evidence{}, false
	}
	return e, true
}

// MarshalJSON emits structured evidence as the canonical five-field
// object and opaque evidence as its original raw value.
func (e Evidence) MarshalJSON() ([]byte, error) {
	if !e.Structured() {
		return json.Marshal(e.Raw)
	}
	type structured Evidence // avoid recursion
	return json.Marshal(structured(e))
}

// UnmarshalJSON accepts three shapes: the canonical five-field object
// (with per-domain key aliases), a five-element positional array, or
// anything else, which is preserved opaquely.
func (e *Evidence) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err == nil {
		if parsed, ok := EvidenceFromMap(m); ok {
			*e = parsed
			return nil
		}
		e.Raw = m
		return nil
	}

	var arr []any
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) == 5 {
		val, convErr := cast.ToFloat64E(arr[3])
		if convErr == nil {
			*e = Evidence{
				Code:   cast.ToString(arr[0]),
				Name:   cast.ToString(arr[1]),
				Date:   cast.ToString(arr[2]),
				Value:  val,
				Metric: cast.ToString(arr[4]),
			}
			return nil
		}
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Raw = raw
	return nil
}
