// Package qacache is the persistent store of every QA item ever
// produced in a campaign. One JSON file per campaign, keyed by content
// hash of the question text, persisted after every mutation so an
// interrupted run loses at most the in-flight item.
package qacache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/qagen-cli/internal/model"
)

// fileShape is the on-disk cache document.
type fileShape struct {
	Questions []model.QAItem `json:"questions"`
}

// Cache holds all QA items for one generation campaign. Not safe for
// concurrent use; the driver is single-threaded by design.
type Cache struct {
	path  string
	items map[string]*model.QAItem
}

// New creates a cache backed by the given file path, loading any
// existing content. A missing or corrupt file starts an empty cache.
func New(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrapf(err, "qacache: create cache dir %s", filepath.Dir(path))
	}
	c := &Cache{path: path, items: make(map[string]*model.QAItem)}
	c.Reload()
	return c, nil
}

// Path returns the backing file path.
func (c *Cache) Path() string {
	return c.path
}

// Len returns the number of cached items across all statuses.
func (c *Cache) Len() int {
	return len(c.items)
}

// Upsert inserts or updates the item under its qa_id, applying the
// status priority rule: liked(2) > disliked(1) > generated(0). When the
// stored status outranks the incoming one the update is rejected and the
// stored item is left untouched. Returns true iff the item is newly
// inserted.
func (c *Cache) Upsert(item model.QAItem, status model.Status) bool {
	item.Status = status
	if item.QAID == "" {
		item.QAID = model.HashQuestion(item.Question)
	}

	existing, ok := c.items[item.QAID]
	if !ok {
		c.items[item.QAID] = &item
		return true
	}

	if existing.Status.Priority() > status.Priority() {
		zap.L().Debug("qacache: upsert rejected by status priority",
			zap.String("qa_id", item.QAID),
			zap.String("existing", string(existing.Status)),
			zap.String("incoming", string(status)),
		)
		return false
	}

	c.items[item.QAID] = &item
	return false
}

// Get returns the item with the given qa_id, or nil.
func (c *Cache) Get(qaID string) *model.QAItem {
	return c.items[qaID]
}

// SetValidation writes a validation record onto an existing item. The
// item's status is untouched: validation outcome and human preference
// are orthogonal axes.
func (c *Cache) SetValidation(qaID string, info model.SQLInfo) bool {
	item, ok := c.items[qaID]
	if !ok {
		return false
	}
	item.SQLInfo = info
	return true
}

// Liked returns liked items, optionally filtered by difficulty
// (empty string = all tiers). Used as positive few-shot guidance.
func (c *Cache) Liked(difficulty model.Difficulty) []model.QAItem {
	return c.filter(model.StatusLiked, difficulty)
}

// Disliked returns disliked items, optionally filtered by difficulty.
// Retained purely as negative few-shot guidance; never exported.
func (c *Cache) Disliked(difficulty model.Difficulty) []model.QAItem {
	return c.filter(model.StatusDisliked, difficulty)
}

func (c *Cache) filter(status model.Status, difficulty model.Difficulty) []model.QAItem {
	var out []model.QAItem
	for _, item := range c.items {
		if item.Status != status {
			continue
		}
		if difficulty != "" && item.Difficulty != difficulty {
			continue
		}
		out = append(out, *item)
	}
	sortItems(out)
	return out
}

// Exportable returns all items with status liked or generated, sorted
// by difficulty rank descending then timestamp ascending. The ordering
// is a published contract of the export file.
func (c *Cache) Exportable() []model.QAItem {
	var out []model.QAItem
	for _, item := range c.items {
		if item.Status.Exportable() {
			out = append(out, *item)
		}
	}
	sortItems(out)
	return out
}

// CountForQuota counts exportable items tied to one (conversation,
// difficulty) pair, used by the driver to short-circuit met quotas.
func (c *Cache) CountForQuota(conversationID string, difficulty model.Difficulty) int {
	n := 0
	for _, item := range c.items {
		if item.Status.Exportable() &&
			item.ConversationID == conversationID &&
			item.Difficulty == difficulty {
			n++
		}
	}
	return n
}

// Persist writes the whole cache to disk, sorted by the export
// ordering. A write failure is logged and returned but is not fatal;
// the in-memory cache stays authoritative for the rest of the run.
func (c *Cache) Persist() error {
	doc := fileShape{Questions: make([]model.QAItem, 0, len(c.items))}
	for _, item := range c.items {
		doc.Questions = append(doc.Questions, *item)
	}
	sortItems(doc.Questions)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		zap.L().Warn("qacache: marshal failed", zap.Error(err))
		return eris.Wrap(err, "qacache: marshal")
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		zap.L().Warn("qacache: persist failed, in-memory cache remains authoritative",
			zap.String("path", c.path),
			zap.Error(err),
		)
		return eris.Wrapf(err, "qacache: write %s", c.path)
	}
	return nil
}

// Reload replaces the in-memory state with the file content. A missing
// or corrupt file is treated as an empty cache, never as a fatal error.
func (c *Cache) Reload() {
	c.items = make(map[string]*model.QAItem)

	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("qacache: read failed, starting empty", zap.String("path", c.path), zap.Error(err))
		}
		return
	}

	var doc fileShape
	if err := json.Unmarshal(data, &doc); err != nil {
		zap.L().Warn("qacache: corrupt cache file, starting empty", zap.String("path", c.path), zap.Error(err))
		return
	}

	for i := range doc.Questions {
		item := doc.Questions[i]
		if item.QAID == "" {
			item.QAID = model.HashQuestion(item.Question)
		}
		c.items[item.QAID] = &item
	}
	zap.L().Info("qacache: loaded", zap.String("path", c.path), zap.Int("items", len(c.items)))
}

// sortItems applies the export ordering: difficulty rank descending,
// then timestamp ascending, qa_id as a deterministic final tie-break.
func sortItems(items []model.QAItem) {
	sort.Slice(items, func(i, j int) bool {
		ri, rj := items[i].Difficulty.Rank(), items[j].Difficulty.Rank()
		if ri != rj {
			return ri > rj
		}
		if !items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].Timestamp.Before(items[j].Timestamp)
		}
		return items[i].QAID < items[j].QAID
	})
}
