// Package sampler selects bounded context windows from a conversation
// and renders them into the text block the model sees. The rendering is
// the entire epistemic context available to the model, so no turn or row
// may be silently dropped.
package sampler

import (
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/sells-group/qagen-cli/internal/model"
)

// Sampler draws random session windows. The random source is injected
// so tests can be deterministic.
type Sampler struct {
	rng *rand.Rand
}

// New creates a sampler with its own PCG source seeded from seed.
func New(seed uint64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Select draws a uniform k in [minSessions, min(maxSessions,
// |sessions|)], samples k sessions without replacement, and returns them
// sorted by session identifier so downstream rendering stays
// chronologically interpretable. Returns false when the bounds are
// inverted or the conversation has fewer than minSessions sessions.
func (s *Sampler) Select(conv *model.Conversation, minSessions, maxSessions int) ([]model.Session, bool) {
	if maxSessions < minSessions {
		zap.L().Warn("sampler: window bounds inverted, nothing satisfies them",
			zap.Int("min_sessions", minSessions),
			zap.Int("max_sessions", maxSessions),
		)
		return nil, false
	}

	n := len(conv.Sessions)
	if n < minSessions || minSessions < 1 {
		zap.L().Debug("sampler: conversation too small",
			zap.String("conversation_id", conv.ID),
			zap.Int("sessions", n),
			zap.Int("min_sessions", minSessions),
		)
		return nil, false
	}

	upper := maxSessions
	if n < upper {
		upper = n
	}
	k := minSessions + s.rng.IntN(upper-minSessions+1)

	perm := s.rng.Perm(n)
	selected := make([]model.Session, 0, k)
	for _, idx := range perm[:k] {
		selected = append(selected, conv.Sessions[idx])
	}

	sort.Slice(selected, func(i, j int) bool {
		return sessionNumber(selected[i].ID) < sessionNumber(selected[j].ID)
	})
	return selected, true
}

// sessionNumber extracts the trailing numeric component of a session id
// ("session_6", "conv_1_session_6"). Ids without one sort by a stable
// fallback derived from the full string.
func sessionNumber(id string) int {
	parts := strings.Split(id, "_")
	for i := len(parts) - 1; i >= 0; i-- {
		if n, err := strconv.Atoi(parts[i]); err == nil {
			return n
		}
	}
	// Lexicographic fallback packed into an int, keeps unknown ids in a
	// stable relative order.
	h := 0
	for _, r := range id {
		h = h*31 + int(r)
	}
	if h < 0 {
		h = -h
	}
	return h
}

// Render produces the model-facing context block for a window of
// sessions. Conversational sessions render one line per turn; tabular
// sessions render every row of every table.
func Render(sessions []model.Session) string {
	var b strings.Builder
	for _, sess := range sessions {
		b.WriteString("### Session ID: " + sess.ID + "\n")
		if sess.Tabular() {
			renderTables(&b, sess.Tables)
		} else {
			renderDialogue(&b, sess)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderDialogue(b *strings.Builder, sess model.Session) {
	b.WriteString("Time: " + sess.Time + "\n")
	b.WriteString("Participants: " + strings.Join(sess.Participants, ", ") + "\n")
	b.WriteString("Dialogs:\n")
	for _, turn := range sess.Turns {
		b.WriteString("Turn " + turn.ID + ": " + turn.Speaker + ": " + turn.Content + "\n")
	}
}

func renderTables(b *strings.Builder, tables []model.Table) {
	b.WriteString("Data Type: Structured Table\n")
	for idx, table := range tables {
		b.WriteString("Table " + strconv.Itoa(idx) + " (Columns: " + strings.Join(table.Headers, ", ") + "):\n")
		for _, row := range table.Rows {
			b.WriteString("  Row:\n")
			// Iterate headers, not the map, to keep column order stable.
			for _, h := range table.Headers {
				if v, ok := row[h]; ok {
					b.WriteString("    " + h + ": " + stringify(v) + "\n")
				}
			}
		}
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return cast.ToString(t)
	}
}
