package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreAnswer(t *testing.T) {
	cases := []struct {
		name      string
		correct   bool
		timeTaken float64
		want      int
	}{
		{"fast correct answer", true, 3.5, 93},
		{"instant correct answer", true, 0, 100},
		{"slow correct answer floors at minimum", true, 60, 10},
		{"correct answer right at decay boundary", true, 45, 10},
		{"incorrect answer earns nothing regardless of time", false, 1, 0},
		{"incorrect slow answer", false, 120, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ScoreAnswer(tc.correct, tc.timeTaken))
		})
	}
}

func TestAnswersMatch(t *testing.T) {
	assert.True(t, AnswersMatch("Michael Jordan", "michael jordan"))
	assert.True(t, AnswersMatch("  Michael Jordan  ", "Michael Jordan"))
	assert.True(t, AnswersMatch("38.4", "38.4"))
	assert.False(t, AnswersMatch("Michael Jordan", "Scottie Pippen"))
	assert.False(t, AnswersMatch("MichaelJordan", "Michael Jordan"))
}
