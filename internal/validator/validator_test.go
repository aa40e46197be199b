package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/qagen-cli/internal/config"
	"github.com/sells-group/qagen-cli/internal/model"
	"github.com/sells-group/qagen-cli/pkg/anthropic"
)

// sqlClient answers every derivation request with one fixed double
// query.
type sqlClient struct {
	response string
	err      error
}

func (c *sqlClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	text, err := c.CompleteText(ctx, req)
	if err != nil {
		return nil, err
	}
	return &anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Type: "text", Text: text}}}, nil
}

func (c *sqlClient) CompleteText(context.Context, anthropic.MessageRequest) (string, error) {
	return c.response, c.err
}

func financialDataset() *model.Dataset {
	return &model.Dataset{Conversations: []model.Conversation{{
		ID: "conv_1",
		Sessions: []model.Session{
			{
				ID:     "session_0",
				Tables: []model.Table{financialTable()},
			},
			{
				ID:    "session_1",
				Turns: []model.Turn{{ID: "1", Speaker: "analyst", Content: "pure dialogue"}},
			},
		},
	}}}
}

func revenueItem() *model.QAItem {
	return &model.QAItem{
		QAID:           model.HashQuestion("What was the combined revenue?"),
		Question:       "What was the combined revenue?",
		Answer:         263435420.0,
		ConversationID: "conv_1",
		SessionIDs:     []string{"session_0"},
		Evidence: []model.Evidence{
			{Code: "600519", Name: "贵州茅台", Date: "2023-03-31", Value: 100000000, Metric: "营业收入"},
			{Code: "600519", Name: "贵州茅台", Date: "2023-06-30", Value: 90000000, Metric: "营业收入"},
			{Code: "600519", Name: "贵州茅台", Date: "2023-09-30", Value: 73435420, Metric: "营业收入"},
		},
	}
}

const doubleQuery = `SQL_ANSWER:
SELECT (SUM(value)) FROM unified_data WHERE metric = '营业收入';

SQL_EVIDENCE:
SELECT code, sname, tdate, value, metric FROM unified_data WHERE metric = '营业收入';`

func newTestValidator(client anthropic.Client) *Validator {
	return New(client, config.AnthropicConfig{
		Model:           "claude-sonnet-4-5-20250929",
		MaxTokens:       4096,
		CallTimeoutSecs: 5,
	}, "financial", 5)
}

func TestValidate_FullMatch(t *testing.T) {
	v := newTestValidator(&sqlClient{response: doubleQuery})
	item := revenueItem()

	info := v.Validate(context.Background(), item, financialDataset())
	assert.Equal(t, model.ValidationMatch, info.Status)
	assert.Equal(t, 263435420.0, info.DerivedAnswer)
	assert.Len(t, info.DerivedRows, 3)
	assert.NotEmpty(t, info.AnswerQuery)
	assert.NotEmpty(t, info.EvidenceQuery)
	assert.Empty(t, info.Error)
}

func TestValidate_AnswerMismatchOnly(t *testing.T) {
	v := newTestValidator(&sqlClient{response: doubleQuery})
	item := revenueItem()
	item.Answer = 999.0

	info := v.Validate(context.Background(), item, financialDataset())
	assert.Equal(t, model.ValidationAnswerNotMatch, info.Status)
}

func TestValidate_EvidenceMismatchOnly(t *testing.T) {
	v := newTestValidator(&sqlClient{response: doubleQuery})
	item := revenueItem()
	// One claimed value off by a unit; the sum claim stays correct.
	item.Evidence[2].Value = 73435421

	info := v.Validate(context.Background(), item, financialDataset())
	assert.Equal(t, model.ValidationEvidenceNotMatch, info.Status)
}

func TestValidate_BothMismatch(t *testing.T) {
	v := newTestValidator(&sqlClient{response: doubleQuery})
	item := revenueItem()
	item.Answer = 999.0
	item.Evidence = item.Evidence[:1]

	info := v.Validate(context.Background(), item, financialDataset())
	assert.Equal(t, model.ValidationBothNotMatch, info.Status)
}

func TestValidate_MissingConversationSkipped(t *testing.T) {
	v := newTestValidator(&sqlClient{response: doubleQuery})
	item := revenueItem()
	item.ConversationID = "conv_404"

	info := v.Validate(context.Background(), item, financialDataset())
	assert.Equal(t, model.ValidationSkipped, info.Status)
	assert.Contains(t, info.Error, "conv_404")
}

func TestValidate_MissingSessionSkipped(t *testing.T) {
	v := newTestValidator(&sqlClient{response: doubleQuery})
	item := revenueItem()
	item.SessionIDs = []string{"session_0", "session_404"}

	info := v.Validate(context.Background(), item, financialDataset())
	assert.Equal(t, model.ValidationSkipped, info.Status)
	assert.Contains(t, info.Error, "session_404")
}

func TestValidate_NoTablesSkipped(t *testing.T) {
	v := newTestValidator(&sqlClient{response: doubleQuery})
	item := revenueItem()
	item.SessionIDs = []string{"session_1"}

	info := v.Validate(context.Background(), item, financialDataset())
	assert.Equal(t, model.ValidationSkipped, info.Status)
}

func TestValidate_MalformedDerivationFailed(t *testing.T) {
	v := newTestValidator(&sqlClient{response: "I cannot write SQL for this."})
	info := v.Validate(context.Background(), revenueItem(), financialDataset())
	assert.Equal(t, model.ValidationFailed, info.Status)
	assert.NotEmpty(t, info.Error)
}

func TestValidate_BadSQLFailed(t *testing.T) {
	v := newTestValidator(&sqlClient{response: "SQL_ANSWER:\nSELECT x FROM no_such_table;\nSQL_EVIDENCE:\nSELECT 1;"})
	info := v.Validate(context.Background(), revenueItem(), financialDataset())
	assert.Equal(t, model.ValidationFailed, info.Status)
	assert.NotEmpty(t, info.AnswerQuery)
}

func TestValidate_StatusAxisUntouched(t *testing.T) {
	v := newTestValidator(&sqlClient{response: doubleQuery})
	item := revenueItem()
	item.Status = model.StatusLiked

	v.Validate(context.Background(), item, financialDataset())
	assert.Equal(t, model.StatusLiked, item.Status)
}
