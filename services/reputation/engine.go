package reputation

import "fmt"

// Metric thresholds. Critical levels force an immediate auto-pause; soft
// levels only mark the account unhealthy.
const (
	CriticalBounceRate = 0.10
	CriticalSpamRate   = 0.01
	SoftBounceRate     = 0.05
	SoftSpamRate       = 0.003
	MinHealthyScore    = 50
)

type Severity string

const (
	SeveritySoft     Severity = "soft"
	SeverityCritical Severity = "critical"
)

// CheckResult is the outcome of a single threshold check. Zero value is
// healthy; unhealthy results carry a severity and a human-readable message.
type CheckResult struct {
	Unhealthy   bool
	Severity    Severity
	Message     string
	AutoFixable bool
}

func healthy() CheckResult {
	return CheckResult{}
}

func unhealthy(severity Severity, message string) CheckResult {
	return CheckResult{Unhealthy: true, Severity: severity, Message: message}
}

// Score computes the 0-100 reputation score from bounce and spam rates.
// Pure function, no I/O.
func Score(bounceRate, spamRate float64) int {
	score := 100

	if bounceRate > 0.05 {
		score -= 30
	} else if bounceRate > 0.02 {
		score -= 15
	}

	if spamRate > 0.003 {
		score -= 40
	} else if spamRate > 0.001 {
		score -= 20
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// Evaluate runs every threshold check against the given metrics and returns
// the results in priority order: critical breaches first, then soft
// degradations. Healthy checks are omitted.
func Evaluate(bounceRate, spamRate float64, score int) []CheckResult {
	checks := []CheckResult{
		checkCriticalBounce(bounceRate),
		checkCriticalSpam(spamRate),
		checkSoftBounce(bounceRate),
		checkSoftSpam(spamRate),
		checkScore(score),
	}

	var results []CheckResult
	for _, c := range checks {
		if c.Unhealthy {
			results = append(results, c)
		}
	}
	return results
}

// HasCriticalBreach reports whether the metrics cross an auto-pause threshold
func HasCriticalBreach(bounceRate, spamRate float64) bool {
	return bounceRate > CriticalBounceRate || spamRate > CriticalSpamRate
}

func checkCriticalBounce(bounceRate float64) CheckResult {
	if bounceRate > CriticalBounceRate {
		return unhealthy(SeverityCritical, fmt.Sprintf("bounce rate %.2f%% exceeds critical threshold %.0f%%", bounceRate*100, CriticalBounceRate*100))
	}
	return healthy()
}

func checkCriticalSpam(spamRate float64) CheckResult {
	if spamRate > CriticalSpamRate {
		return unhealthy(SeverityCritical, fmt.Sprintf("spam complaint rate %.3f%% exceeds critical threshold %.1f%%", spamRate*100, CriticalSpamRate*100))
	}
	return healthy()
}

func checkSoftBounce(bounceRate float64) CheckResult {
	if bounceRate > CriticalBounceRate {
		// already reported as critical
		return healthy()
	}
	if bounceRate > SoftBounceRate {
		return unhealthy(SeveritySoft, fmt.Sprintf("bounce rate %.2f%% is elevated", bounceRate*100))
	}
	return healthy()
}

func checkSoftSpam(spamRate float64) CheckResult {
	if spamRate > CriticalSpamRate {
		return healthy()
	}
	if spamRate > SoftSpamRate {
		return unhealthy(SeveritySoft, fmt.Sprintf("spam complaint rate %.3f%% is elevated", spamRate*100))
	}
	return healthy()
}

func checkScore(score int) CheckResult {
	if score < MinHealthyScore {
		return unhealthy(SeveritySoft, fmt.Sprintf("reputation score %d is below %d", score, MinHealthyScore))
	}
	return healthy()
}
