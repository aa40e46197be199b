// Package driver orchestrates a generation campaign: quota loops per
// (conversation, difficulty) pair, optional validation over the
// accumulated cache, and the final export. Pure sequencing: every
// per-item failure has already been converted to a recorded status by
// the generator or validator.
package driver

import (
	"context"
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/qagen-cli/internal/generator"
	"github.com/sells-group/qagen-cli/internal/model"
	"github.com/sells-group/qagen-cli/internal/qacache"
	"github.com/sells-group/qagen-cli/internal/validator"
)

// difficultyOrder fixes the iteration order of the quota loop.
var difficultyOrder = []model.Difficulty{
	model.DifficultyEasy,
	model.DifficultyMedium,
	model.DifficultyHard,
}

// Driver runs one campaign over a dataset. Single-threaded: the cache's
// upsert/persist cycle assumes exclusive access.
type Driver struct {
	cache      *qacache.Cache
	gen        *generator.Generator
	val        *validator.Validator // nil disables validation
	quotas     map[model.Difficulty]int
	maxRetries int
	runID      string
}

// New creates a driver. quotas maps each difficulty tier to its target
// count per conversation; maxRetries caps consecutive fruitless
// attempts for one (conversation, difficulty) pair before it is
// abandoned.
func New(cache *qacache.Cache, gen *generator.Generator, val *validator.Validator, quotas map[model.Difficulty]int, maxRetries int) *Driver {
	if maxRetries <= 0 {
		maxRetries = 8
	}
	return &Driver{
		cache:      cache,
		gen:        gen,
		val:        val,
		quotas:     quotas,
		maxRetries: maxRetries,
		runID:      uuid.New().String(),
	}
}

// Run executes the full campaign: generation quota loops, then
// validation of every unsettled exportable item.
func (d *Driver) Run(ctx context.Context, ds *model.Dataset) error {
	zap.L().Info("campaign started",
		zap.String("run_id", d.runID),
		zap.Int("conversations", len(ds.Conversations)),
		zap.Int("cached_items", d.cache.Len()),
	)

	for ci := range ds.Conversations {
		conv := &ds.Conversations[ci]
		for _, difficulty := range difficultyOrder {
			if err := ctx.Err(); err != nil {
				return eris.Wrap(err, "driver: run canceled")
			}
			d.fillQuota(ctx, conv, difficulty)
		}
	}

	if d.val != nil {
		d.runValidation(ctx, ds)
	}

	d.logSummary()
	return nil
}

// fillQuota generates items for one (conversation, difficulty) pair
// until its target is met. Already-met quotas short-circuit, which is
// what makes re-running a campaign idempotent.
func (d *Driver) fillQuota(ctx context.Context, conv *model.Conversation, difficulty model.Difficulty) {
	target := d.quotas[difficulty]
	if target <= 0 {
		return
	}

	have := d.cache.CountForQuota(conv.ID, difficulty)
	if have >= target {
		zap.L().Debug("driver: quota already met",
			zap.String("conversation_id", conv.ID),
			zap.String("difficulty", string(difficulty)),
			zap.Int("have", have),
		)
		return
	}

	stalled := 0
	for have < target {
		if ctx.Err() != nil {
			return
		}

		outcome := d.gen.Attempt(ctx, conv, difficulty)
		if outcome.Kind == generator.Rejected && outcome.Reason == "too few sessions" {
			// Structural: retrying cannot help this conversation.
			zap.L().Warn("driver: conversation below session threshold, skipping",
				zap.String("conversation_id", conv.ID),
			)
			return
		}

		now := d.cache.CountForQuota(conv.ID, difficulty)
		if now > have {
			have = now
			stalled = 0
			continue
		}

		// Rejected, or committed a duplicate that added nothing.
		stalled++
		if stalled >= d.maxRetries {
			zap.L().Warn("driver: retry budget exhausted, abandoning remaining quota",
				zap.String("conversation_id", conv.ID),
				zap.String("difficulty", string(difficulty)),
				zap.Int("have", have),
				zap.Int("target", target),
			)
			return
		}
	}
}

// runValidation re-derives every exportable item whose validation is
// not yet settled. Matched and skipped items are never re-submitted,
// which makes validation resumable across interrupted runs.
func (d *Driver) runValidation(ctx context.Context, ds *model.Dataset) {
	validated := 0
	for _, item := range d.cache.Exportable() {
		if item.SQLInfo.Status.Settled() {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		info := d.val.Validate(ctx, &item, ds)
		d.cache.SetValidation(item.QAID, info)
		if err := d.cache.Persist(); err != nil {
			zap.L().Warn("driver: cache persist failed after validation", zap.Error(err))
		}
		validated++
	}
	zap.L().Info("validation pass complete", zap.Int("validated", validated))
}

// exportItem wraps a QA item with export-time metadata: the dense index
// assigned in the published order and the id of the run that wrote the
// file. Neither belongs in the cache.
type exportItem struct {
	model.QAItem
	QAIndex int    `json:"qa_index"`
	RunID   string `json:"run_id"`
}

// Export writes all exportable items to path, assigning each a dense
// 0-based qa_index in the published export order.
func (d *Driver) Export(path string) (int, error) {
	exportable := d.cache.Exportable()
	items := make([]exportItem, len(exportable))
	for i := range exportable {
		items[i] = exportItem{QAItem: exportable[i], QAIndex: i, RunID: d.runID}
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return 0, eris.Wrap(err, "driver: marshal export")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, eris.Wrapf(err, "driver: write export %s", path)
	}

	zap.L().Info("export written",
		zap.String("path", path),
		zap.Int("items", len(items)),
		zap.String("run_id", d.runID),
	)
	return len(items), nil
}

// logSummary emits the end-of-campaign per-difficulty counts.
func (d *Driver) logSummary() {
	fields := []zap.Field{zap.String("run_id", d.runID)}
	for _, difficulty := range difficultyOrder {
		generated, matched := 0, 0
		for _, item := range d.cache.Exportable() {
			if item.Difficulty != difficulty {
				continue
			}
			generated++
			if item.SQLInfo.Status == model.ValidationMatch {
				matched++
			}
		}
		fields = append(fields,
			zap.Int(string(difficulty)+"_generated", generated),
			zap.Int(string(difficulty)+"_validated", matched),
		)
	}
	zap.L().Info("campaign summary", fields...)
}
