package validator

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"golang.org/x/text/width"

	"github.com/sells-group/qagen-cli/internal/model"
)

// relTolerance is the relative tolerance for numeric comparison.
const relTolerance = 1e-9

// magnitudeSuffixes are the unit suffixes the source corpora attach to
// numeric values. Longer suffixes are checked first so 千万 does not
// match as 万.
var magnitudeSuffixes = []struct {
	Suffix string
	Factor float64
}{
	{"千万", 1e7},
	{"百万", 1e6},
	{"亿", 1e8},
	{"万", 1e4},
	{"元", 1},
}

// NormalizeValue coerces a loosely-typed value to float64. For strings
// it folds full-width characters, strips thousands separators, applies
// magnitude suffixes (万/百万/千万/亿) and percent signs, then parses a
// signed decimal. Returns false when the value carries no number, in
// which case comparison falls back to string equality.
func NormalizeValue(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case string:
		return normalizeString(t)
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToFloat64(t), true
	default:
		if f, err := cast.ToFloat64E(v); err == nil {
			return f, true
		}
		return 0, false
	}
}

func normalizeString(s string) (float64, bool) {
	s = strings.TrimSpace(width.Narrow.String(s))
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")

	factor := 1.0
	for _, m := range magnitudeSuffixes {
		if strings.HasSuffix(s, m.Suffix) {
			factor = m.Factor
			s = strings.TrimSuffix(s, m.Suffix)
			break
		}
	}
	if strings.HasSuffix(s, "%") {
		factor /= 100
		s = strings.TrimSuffix(s, "%")
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f * factor, true
}

// CompareAnswers applies tolerance-based equality: when both sides
// normalize to numbers they are compared with relative tolerance;
// otherwise both are compared as trimmed strings.
func CompareAnswers(a, b any) bool {
	fa, okA := NormalizeValue(a)
	fb, okB := NormalizeValue(b)
	if okA && okB {
		return floatsEqual(fa, fb)
	}
	return strings.TrimSpace(cast.ToString(a)) == strings.TrimSpace(cast.ToString(b))
}

func floatsEqual(a, b float64) bool {
	diff := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	return diff <= relTolerance+relTolerance*scale
}

// CompareEvidence checks multiset equality between the evidence the
// model claimed and the rows the derived evidence query returned. Order
// is insignificant; duplication is significant: a tuple present twice
// on one side must be present twice on the other. Any opaque evidence
// entry fails the comparison outright.
func CompareEvidence(claimed []model.Evidence, derived []map[string]any, domain string) bool {
	if len(claimed) != len(derived) {
		return false
	}

	counts := make(map[string]int, len(claimed))
	for _, e := range claimed {
		if !e.Structured() {
			return false
		}
		counts[evidenceKey(e)]++
	}
	for _, row := range derived {
		counts[rowKey(row, domain)]--
	}
	for _, n := range counts {
		if n != 0 {
			return false
		}
	}
	return true
}

// evidenceKey canonicalizes one claimed tuple. Values are rounded so
// 279000000 and 279000000.0 collapse to the same key.
func evidenceKey(e model.Evidence) string {
	return tupleKey(e.Code, e.Name, e.Date, e.Value, e.Metric)
}

// rowKey canonicalizes one derived row. Source aliases in the SELECT
// list are first folded onto the domain's unified column names, then
// the row goes through the same tuple mapping claimed evidence uses, so
// both sides canonicalize identically.
func rowKey(row map[string]any, domain string) string {
	unified := make(map[string]any, len(row))
	for _, col := range domainSchemas[domain] {
		for _, alias := range col.Aliases {
			if v, ok := row[alias]; ok {
				unified[col.Name] = v
				break
			}
		}
	}
	e, ok := model.EvidenceFromMap(unified)
	if !ok {
		// No identifier and no value: cannot correspond to any claimed tuple.
		return fmt.Sprintf("unmappable\x1f%v", row)
	}
	return evidenceKey(e)
}

func tupleKey(code, name, date string, value float64, metric string) string {
	return fmt.Sprintf("%s\x1f%s\x1f%s\x1f%.5f\x1f%s",
		strings.TrimSpace(code),
		strings.TrimSpace(name),
		strings.TrimSpace(date),
		value,
		strings.TrimSpace(metric),
	)
}
