package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashQuestion_Stable(t *testing.T) {
	a := HashQuestion("What was the total revenue in Q3?")
	b := HashQuestion("What was the total revenue in Q3?")
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestHashQuestion_TrimsWhitespace(t *testing.T) {
	assert.Equal(t,
		HashQuestion("What was the total revenue in Q3?"),
		HashQuestion("  What was the total revenue in Q3?\n"),
	)
}

func TestHashQuestion_DistinctQuestions(t *testing.T) {
	assert.NotEqual(t,
		HashQuestion("What was the total revenue in Q3?"),
		HashQuestion("What was the total revenue in Q2?"),
	)
}

func TestStatus_Priority(t *testing.T) {
	assert.Greater(t, StatusLiked.Priority(), StatusDisliked.Priority())
	assert.Greater(t, StatusDisliked.Priority(), StatusGenerated.Priority())
}

func TestStatus_Exportable(t *testing.T) {
	assert.True(t, StatusLiked.Exportable())
	assert.True(t, StatusGenerated.Exportable())
	assert.False(t, StatusDisliked.Exportable())
}

func TestDifficulty_Rank(t *testing.T) {
	assert.Equal(t, 0, DifficultyEasy.Rank())
	assert.Equal(t, 1, DifficultyMedium.Rank())
	assert.Equal(t, 2, DifficultyHard.Rank())
}

func TestDifficulty_Valid(t *testing.T) {
	assert.True(t, DifficultyEasy.Valid())
	assert.True(t, DifficultyMedium.Valid())
	assert.True(t, DifficultyHard.Valid())
	assert.False(t, Difficulty("extreme").Valid())
	assert.False(t, Difficulty("").Valid())
}

func TestValidationStatus_Settled(t *testing.T) {
	assert.True(t, ValidationMatch.Settled())
	assert.True(t, ValidationSkipped.Settled())
	assert.False(t, ValidationNotYet.Settled())
	assert.False(t, ValidationAnswerNotMatch.Settled())
	assert.False(t, ValidationEvidenceNotMatch.Settled())
	assert.False(t, ValidationBothNotMatch.Settled())
	assert.False(t, ValidationFailed.Settled())
}
