package reputation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name       string
		bounceRate float64
		spamRate   float64
		want       int
	}{
		{"clean account", 0, 0, 100},
		{"high bounce only", 0.06, 0, 70},
		{"moderate bounce only", 0.03, 0, 85},
		{"high spam only", 0, 0.004, 60},
		{"moderate spam only", 0, 0.002, 80},
		{"high bounce and spam", 0.06, 0.004, 30},
		{"both moderate", 0.03, 0.002, 65},
		{"boundary bounce not penalized", 0.02, 0, 100},
		{"boundary spam not penalized", 0, 0.001, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.bounceRate, tt.spamRate))
		})
	}
}

func TestScoreClamped(t *testing.T) {
	got := Score(0.5, 0.5)
	assert.GreaterOrEqual(t, got, 0)
	assert.LessOrEqual(t, got, 100)
	assert.Equal(t, 30, got)
}

func TestEvaluateCriticalFirst(t *testing.T) {
	results := Evaluate(0.11, 0.02, Score(0.11, 0.02))

	assert.NotEmpty(t, results)
	assert.Equal(t, SeverityCritical, results[0].Severity)
	for _, r := range results {
		assert.True(t, r.Unhealthy)
	}
}

func TestEvaluateSoftOnly(t *testing.T) {
	score := Score(0.06, 0)
	results := Evaluate(0.06, 0, score)

	assert.Len(t, results, 1)
	assert.Equal(t, SeveritySoft, results[0].Severity)
	assert.Contains(t, results[0].Message, "bounce rate")
}

func TestEvaluateLowScore(t *testing.T) {
	// bounce and spam both degraded pushes the score below 50
	score := Score(0.06, 0.004)
	assert.Less(t, score, MinHealthyScore)

	results := Evaluate(0.06, 0.004, score)

	var scoreIssue bool
	for _, r := range results {
		if r.Severity == SeveritySoft && r.Unhealthy {
			scoreIssue = true
		}
	}
	assert.True(t, scoreIssue)
}

func TestEvaluateHealthy(t *testing.T) {
	results := Evaluate(0.01, 0.0005, Score(0.01, 0.0005))
	assert.Empty(t, results)
}

func TestHasCriticalBreach(t *testing.T) {
	assert.True(t, HasCriticalBreach(0.11, 0))
	assert.True(t, HasCriticalBreach(0, 0.011))
	assert.False(t, HasCriticalBreach(0.10, 0.01))
	assert.False(t, HasCriticalBreach(0.06, 0.004))
}

func TestCriticalNotDoubleReported(t *testing.T) {
	// a critical bounce must not also surface as a soft bounce issue
	results := Evaluate(0.15, 0, Score(0.15, 0))

	var bounceIssues int
	for _, r := range results {
		if r.Severity == SeverityCritical {
			bounceIssues++
		}
	}
	assert.Equal(t, 1, bounceIssues)
}
