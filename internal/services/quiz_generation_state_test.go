package services

import (
	"testing"

	"sports_trivia_go_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextJobStatusSuccessPath(t *testing.T) {
	status := models.JobPending

	status, err := nextJobStatus(status, eventSQLGenerated)
	require.NoError(t, err)
	assert.Equal(t, models.JobSQLGenerated, status)

	status, err = nextJobStatus(status, eventAnswerVerified)
	require.NoError(t, err)
	assert.Equal(t, models.JobAnswerVerified, status)

	status, err = nextJobStatus(status, eventRoundCreated)
	require.NoError(t, err)
	assert.Equal(t, models.JobRoundCreated, status)
}

func TestNextJobStatusFailurePaths(t *testing.T) {
	for _, from := range []models.JobStatus{models.JobPending, models.JobSQLGenerated, models.JobAnswerVerified} {
		status, err := nextJobStatus(from, eventFailed)
		require.NoError(t, err, "fail from %s", from)
		assert.Equal(t, models.JobFailed, status)
	}

	// A completed round can never fail.
	_, err := nextJobStatus(models.JobRoundCreated, eventFailed)
	assert.Error(t, err)
}

func TestNextJobStatusNeverSkipsForward(t *testing.T) {
	_, err := nextJobStatus(models.JobPending, eventAnswerVerified)
	assert.Error(t, err)

	_, err = nextJobStatus(models.JobPending, eventRoundCreated)
	assert.Error(t, err)

	_, err = nextJobStatus(models.JobSQLGenerated, eventRoundCreated)
	assert.Error(t, err)

	_, err = nextJobStatus(models.JobAnswerVerified, eventSQLGenerated)
	assert.Error(t, err)
}

func TestNextJobStatusRetry(t *testing.T) {
	status, err := nextJobStatus(models.JobFailed, eventRetry)
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, status)

	// Only a failed job can open a new attempt.
	for _, from := range []models.JobStatus{models.JobPending, models.JobSQLGenerated, models.JobAnswerVerified, models.JobRoundCreated} {
		_, err := nextJobStatus(from, eventRetry)
		assert.Error(t, err, "retry from %s", from)
	}
}

func TestDedupeDistractors(t *testing.T) {
	distractors := dedupeDistractors("LeBron James", []string{
		"Kevin Durant",
		"lebron james", // duplicate of the correct answer
		"Kevin Durant", // duplicate distractor
		"  ",
		"Stephen Curry",
	})
	assert.Equal(t, []string{"Kevin Durant", "Stephen Curry"}, distractors)
}

func TestAssembleOptionsContainsCorrectExactlyOnce(t *testing.T) {
	options := assembleOptions("42", []string{"40", "44", "46"})
	assert.Len(t, options, 4)

	count := 0
	for _, o := range options {
		if o == "42" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
