package generator

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rotisserie/eris"
	"github.com/spf13/cast"

	"github.com/sells-group/qagen-cli/internal/model"
)

// rawQA is the shape the generation prompt demands back from the model.
type rawQA struct {
	Question string           `json:"question"`
	Answer   any              `json:"answer"`
	Evidence []model.Evidence `json:"evidence"`
}

var answerPrefix = regexp.MustCompile(`(?i)^the answer is[:：]?\s*`)

// numberPattern matches the first signed decimal in free text.
var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// parseResponse turns raw model output into a candidate QA item. It
// requires a JSON object with question, answer and evidence keys; code
// fences are stripped and malformed JSON gets one repair pass before
// giving up.
func parseResponse(text string) (*model.QAItem, error) {
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return nil, eris.New("generator: empty response")
	}

	var raw rawQA
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(cleaned)
		if repairErr != nil {
			return nil, eris.Wrap(err, "generator: parse response")
		}
		if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
			return nil, eris.Wrap(err, "generator: parse repaired response")
		}
	}

	if strings.TrimSpace(raw.Question) == "" {
		return nil, eris.New("generator: response missing question")
	}
	if raw.Answer == nil {
		return nil, eris.New("generator: response missing answer")
	}
	if raw.Evidence == nil {
		return nil, eris.New("generator: response missing evidence array")
	}

	return &model.QAItem{
		Question: strings.TrimSpace(raw.Question),
		Answer:   NormalizeAnswer(raw.Answer),
		Evidence: raw.Evidence,
	}, nil
}

// NormalizeAnswer coerces a model-reported answer to a numeric operand.
// Textual answers are stripped of the "The answer is:" preamble, then
// the first signed decimal is extracted; a text answer with no number at
// all becomes 0.0 so downstream tolerance comparison always has a
// numeric side to work with.
func NormalizeAnswer(v any) any {
	switch t := v.(type) {
	case string:
		s := answerPrefix.ReplaceAllString(strings.TrimSpace(t), "")
		if m := numberPattern.FindString(s); m != "" {
			f, err := strconv.ParseFloat(m, 64)
			if err == nil {
				return f
			}
		}
		return 0.0
	case float64:
		return t
	default:
		if f, err := cast.ToFloat64E(v); err == nil {
			return f
		}
		return 0.0
	}
}

// cleanJSON strips markdown code fences and trims to the outermost JSON
// object so lightly decorated model output still parses.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
