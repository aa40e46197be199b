// Package validator independently verifies candidate QA items: it
// rebuilds a relation from the session tables the item actually used,
// asks the model to translate the question into answer and evidence
// queries, executes both, and reconciles the results against the item's
// self-reported answer and evidence. Outcomes are recorded statuses,
// never errors propagated past the driver.
package validator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/qagen-cli/internal/config"
	"github.com/sells-group/qagen-cli/internal/model"
	"github.com/sells-group/qagen-cli/internal/resilience"
	"github.com/sells-group/qagen-cli/pkg/anthropic"
)

// Validator re-derives answers for cached items. One Validate call
// builds and tears down its own relation; no state leaks between items.
type Validator struct {
	client anthropic.Client
	model  config.AnthropicConfig
	domain string
	// queryTimeout bounds each derived-query execution.
	queryTimeout time.Duration
}

// New creates a validator for the given corpus domain.
func New(client anthropic.Client, modelCfg config.AnthropicConfig, domain string, queryTimeoutSecs int) *Validator {
	timeout := time.Duration(queryTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Validator{
		client:       client,
		model:        modelCfg,
		domain:       domain,
		queryTimeout: timeout,
	}
}

// Validate re-derives one item's answer and returns the validation
// record to store. The item itself is not mutated and its status axis is
// never touched.
func (v *Validator) Validate(ctx context.Context, item *model.QAItem, ds *model.Dataset) model.SQLInfo {
	// Resolve the context window. Missing conversations or sessions are
	// structural, not fatal: the item is marked skipped and kept for
	// manual inspection.
	conv := ds.FindConversation(item.ConversationID)
	if conv == nil {
		return skipped("conversation " + item.ConversationID + " not found")
	}

	var tables []model.Table
	for _, sid := range item.SessionIDs {
		sess := conv.FindSession(sid)
		if sess == nil {
			return skipped("session " + sid + " not found in conversation " + conv.ID)
		}
		tables = append(tables, sess.Tables...)
	}
	if len(tables) == 0 {
		return skipped("no table data in referenced sessions")
	}

	relation, err := Materialize(v.domain, tables)
	if err != nil {
		return failed("", "", err)
	}
	defer relation.Close()

	answerSQL, evidenceSQL, err := v.deriveQueries(ctx, item.Question, relation, tables)
	if err != nil {
		return failed("", "", err)
	}

	info := model.SQLInfo{
		AnswerQuery:   answerSQL,
		EvidenceQuery: evidenceSQL,
	}

	queryCtx, cancel := context.WithTimeout(ctx, v.queryTimeout)
	defer cancel()

	answerCols, answerRows, err := relation.Execute(queryCtx, answerSQL)
	if err != nil {
		return failed(answerSQL, evidenceSQL, err)
	}
	_, evidenceRows, err := relation.Execute(queryCtx, evidenceSQL)
	if err != nil {
		return failed(answerSQL, evidenceSQL, err)
	}

	info.DerivedAnswer = firstScalar(answerCols, answerRows)
	info.DerivedRows = evidenceRows

	answerMatch := CompareAnswers(item.Answer, info.DerivedAnswer)
	evidenceMatch := CompareEvidence(item.Evidence, evidenceRows, v.domain)

	switch {
	case answerMatch && evidenceMatch:
		info.Status = model.ValidationMatch
	case !answerMatch && !evidenceMatch:
		info.Status = model.ValidationBothNotMatch
	case !answerMatch:
		info.Status = model.ValidationAnswerNotMatch
	default:
		info.Status = model.ValidationEvidenceNotMatch
	}

	zap.L().Info("validator: item reconciled",
		zap.String("qa_id", item.QAID),
		zap.String("status", string(info.Status)),
		zap.Bool("answer_match", answerMatch),
		zap.Bool("evidence_match", evidenceMatch),
	)
	return info
}

// deriveQueries asks the model for the double query, bounded by the
// model call timeout.
func (v *Validator) deriveQueries(ctx context.Context, question string, relation *Relation, tables []model.Table) (string, string, error) {
	timeout := time.Duration(v.model.CallTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	response, err := resilience.Call(ctx, resilience.ModelCallPolicy("derive_sql"), func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return v.client.CompleteText(callCtx, anthropic.MessageRequest{
			Model:     v.model.Model,
			MaxTokens: v.model.MaxTokens,
			System:    anthropic.BuildCachedSystemBlocks(sqlSystem),
			Messages: []anthropic.Message{{
				Role:    "user",
				Content: buildSQLPrompt(question, relation.SchemaColumns(), tables),
			}},
			Stream: v.model.StreamResponses,
		})
	})
	if err != nil {
		return "", "", err
	}
	return parseDoubleQuery(response)
}

// firstScalar extracts the single expected scalar: first column of the
// first row, nil when the query returned nothing.
func firstScalar(cols []string, rows []map[string]any) any {
	if len(rows) == 0 || len(cols) == 0 {
		return nil
	}
	return rows[0][cols[0]]
}

func skipped(reason string) model.SQLInfo {
	zap.L().Warn("validator: item skipped", zap.String("reason", reason))
	return model.SQLInfo{Status: model.ValidationSkipped, Error: reason}
}

func failed(answerSQL, evidenceSQL string, err error) model.SQLInfo {
	zap.L().Warn("validator: derivation failed", zap.Error(err))
	return model.SQLInfo{
		Status:        model.ValidationFailed,
		AnswerQuery:   answerSQL,
		EvidenceQuery: evidenceSQL,
		Error:         err.Error(),
	}
}
