// Package dataset loads the conversation corpus consumed by generation
// and validation. The corpus is a single JSON file holding an array of
// conversations; a load failure is the one error class that aborts the
// whole run.
package dataset

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/qagen-cli/internal/model"
)

// Load reads a dataset file and normalizes every session: explicit
// tables are kept as-is, and sessions whose turns embed markdown tables
// get those tables extracted so the validator can materialize them.
func Load(path string) (*model.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}

	var conversations []model.Conversation
	if err := json.Unmarshal(data, &conversations); err != nil {
		return nil, eris.Wrapf(err, "dataset: parse %s", path)
	}

	ds := &model.Dataset{Conversations: conversations}
	normalize(ds)

	sessions := 0
	for i := range ds.Conversations {
		sessions += len(ds.Conversations[i].Sessions)
	}
	zap.L().Info("dataset loaded",
		zap.String("path", path),
		zap.Int("conversations", len(ds.Conversations)),
		zap.Int("sessions", sessions),
	)
	return ds, nil
}

// normalize fills gaps left by loosely-produced corpora: missing ids get
// positional defaults, and dialogue content containing markdown tables is
// lifted into structured tables.
func normalize(ds *model.Dataset) {
	for ci := range ds.Conversations {
		conv := &ds.Conversations[ci]
		for si := range conv.Sessions {
			sess := &conv.Sessions[si]
			if sess.Tabular() {
				continue
			}
			for ti := range sess.Turns {
				if tables := ExtractTables(sess.Turns[ti].Content); len(tables) > 0 {
					sess.Tables = append(sess.Tables, tables...)
				}
			}
		}
	}
}
