package aiclient

// Fallback weights for the deterministic fit-score formula (spec §4.3(4),
// §9: "spec mandates a deterministic fallback and leaves weights
// configurable"). Exported as variables, not constants, so a later
// configuration layer may tune them without code changes.
var (
	WeightSkillOverlap    = 0.35
	WeightHistoricalRatio = 0.25
	WeightPriority        = 0.25
	WeightInverseDuration = 0.15
)

// FallbackFitScore combines (i) skill overlap fraction, (ii) historical
// success ratio, (iii) priority weight, and (iv) inverse expected duration
// into the weighted closed-form score mandated as the deterministic
// fallback by spec §4.3(4).
func FallbackFitScore(in FitInput) FitScore {
	overlap := skillOverlapFraction(in.AgentCapability, in.TaskLabels)
	inverseDuration := inverseDurationScore(in.ExpectedDuration)

	score := WeightSkillOverlap*overlap +
		WeightHistoricalRatio*in.HistoricalRatio +
		WeightPriority*in.TaskPriority +
		WeightInverseDuration*inverseDuration

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return FitScore{Score: score, Source: "fallback"}
}

func skillOverlapFraction(agentCaps, taskLabels map[string]struct{}) float64 {
	if len(taskLabels) == 0 {
		return 1
	}
	matched := 0
	for label := range taskLabels {
		if _, ok := agentCaps[label]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(taskLabels))
}

// inverseDurationScore maps expected duration in hours to a 0..1 score
// where shorter tasks score higher, asymptotically approaching 0 for very
// long tasks. 1 hour ~= 0.5, 8 hours ~= 0.11.
func inverseDurationScore(hours float64) float64 {
	if hours <= 0 {
		return 1
	}
	return 1 / (1 + hours)
}

// FallbackPrediction derives success probability, expected duration, and
// blockage risk from historical completion statistics per label set (spec
// §4.6 "fallback derived from historical completion statistics").
func FallbackPrediction(historicalSuccess, historicalDuration float64) Prediction {
	if historicalDuration <= 0 {
		historicalDuration = 4 // a conservative default, hours
	}
	return Prediction{
		SuccessProbability: historicalSuccess,
		ExpectedDuration:   historicalDuration,
		BlockageRisk:       1 - historicalSuccess,
		Source:             "fallback",
	}
}

// FallbackMitigations is the static rule book consulted when the oracle is
// unavailable or times out (spec §8 scenario 6).
func FallbackMitigations(description, severity string) []string {
	base := []string{
		"Document the blocker in a decision log entry for downstream agents.",
		"Check whether a soft (mockable) dependency can stand in until the blocker clears.",
	}
	switch severity {
	case "high":
		base = append(base, "Escalate to an operator; high-severity blockers risk stalling dependents.")
	case "medium":
		base = append(base, "Re-check the blocker again after any in-flight dependency completes.")
	default:
		base = append(base, "Continue polling for unblock; low-severity blockers often self-resolve.")
	}
	return base
}
