package model

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// Difficulty controls prompt complexity and target quotas.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Rank orders difficulties for export sorting: hard > medium > easy.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyHard:
		return 2
	case DifficultyMedium:
		return 1
	default:
		return 0
	}
}

// Valid reports whether d is one of the three known tiers.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Status classifies a cached QA item. Liked and disliked come from human
// review; generated is the default for non-interactive runs.
type Status string

const (
	StatusGenerated Status = "generated"
	StatusLiked     Status = "liked"
	StatusDisliked  Status = "disliked"
)

// Priority orders statuses for the cache upsert rule: an incoming status
// with lower priority than the stored one never overwrites it.
func (s Status) Priority() int {
	switch s {
	case StatusLiked:
		return 2
	case StatusDisliked:
		return 1
	default:
		return 0
	}
}

// Exportable reports whether an item with this status belongs in the
// final dataset. Disliked items are retained as negative few-shot
// guidance but never exported.
func (s Status) Exportable() bool {
	return s == StatusLiked || s == StatusGenerated
}

// ValidationStatus is the outcome of SQL re-derivation for one item.
type ValidationStatus string

const (
	ValidationNotYet           ValidationStatus = "not_yet"
	ValidationMatch            ValidationStatus = "match"
	ValidationAnswerNotMatch   ValidationStatus = "answer_not_match"
	ValidationEvidenceNotMatch ValidationStatus = "evidence_not_match"
	ValidationBothNotMatch     ValidationStatus = "answer_not_match; evidence_not_match"
	ValidationSkipped          ValidationStatus = "skipped"
	ValidationFailed           ValidationStatus = "failed"
)

// Settled reports whether re-running validation could change the
// outcome. Matched and skipped items are never re-submitted.
func (v ValidationStatus) Settled() bool {
	return v == ValidationMatch || v == ValidationSkipped
}

// SQLInfo records the independent re-derivation of an item's answer.
type SQLInfo struct {
	Status        ValidationStatus `json:"status"`
	AnswerQuery   string           `json:"sql_answer_query,omitempty"`
	EvidenceQuery string           `json:"sql_evidence_query,omitempty"`
	DerivedAnswer any              `json:"sql_answer,omitempty"`
	DerivedRows   []map[string]any `json:"sql_evidence,omitempty"`
	Error         string           `json:"error,omitempty"`
}

// QAItem is one cached question/answer/evidence triple together with the
// exact context window that produced it and its validation record.
type QAItem struct {
	QAID           string     `json:"qa_id"`
	Question       string     `json:"question"`
	Answer         any        `json:"answer"`
	Evidence       []Evidence `json:"evidence"`
	ConversationID string     `json:"conversation_id"`
	SessionIDs     []string   `json:"session_ids"`
	Difficulty     Difficulty `json:"difficulty"`
	Status         Status     `json:"status"`
	SQLInfo        SQLInfo    `json:"sql_info"`
	Timestamp      time.Time  `json:"timestamp"`
}

// HashQuestion derives the stable cache identity for a question text.
// Regenerating identical text maps to the same item.
func HashQuestion(question string) string {
	sum := md5.Sum([]byte(strings.TrimSpace(question)))
	return hex.EncodeToString(sum[:])
}
