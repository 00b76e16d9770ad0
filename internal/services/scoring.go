package services

import (
	"math"
	"strings"
)

// AnswersMatch compares a submitted answer to the correct one:
// case-insensitive, leading/trailing-whitespace-insensitive exact
// equality.
func AnswersMatch(submitted, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(correct))
}

// ScoreAnswer computes points for one submission. The time bonus decays
// by 2 points per second from 100; a correct answer always earns at
// least 10 points, an incorrect one earns 0.
func ScoreAnswer(correct bool, timeTakenSeconds float64) int {
	if !correct {
		return 0
	}
	timeBonus := 100 - int(math.Floor(timeTakenSeconds*2))
	if timeBonus < 0 {
		timeBonus = 0
	}
	if timeBonus < 10 {
		return 10
	}
	return timeBonus
}
