package screening

import (
	"math"

	"github.com/clinprot/regdocs/pkg/common/models"
	"github.com/clinprot/regdocs/pkg/extraction"
)

// Eligibility status labels shown to principal investigators.
const (
	StatusHighlyEligible      = "HIGHLY ELIGIBLE"
	StatusPotentiallyEligible = "POTENTIALLY ELIGIBLE"
	StatusIneligible          = "INELIGIBLE"
	StatusUncertain           = "UNCERTAIN / NEEDS REVIEW"
)

// Confidence weights. Inclusion match quality dominates; exclusion
// safety, data completeness, and NLP certainty adjust it.
const (
	weightInclusion = 0.50
	weightExclusion = 0.25
	weightData      = 0.15
	weightNLP       = 0.10

	softExclusionPenalty = 0.85
	hardExclusionCeiling = 0.15

	highlyEligibleThreshold      = 0.75
	potentiallyEligibleThreshold = 0.45
)

// Score turns raw criteria outcomes for one patient into a scored
// eligibility result. A met hard exclusion always yields INELIGIBLE with
// confidence capped at the ceiling, regardless of how well the patient
// matches the inclusion criteria.
func Score(patient extraction.ScreenedPatient) models.ScreeningResult {
	var (
		inclusionTotal, inclusionMet int
		exclusionTotal               int
		hardExclusions               int
		softExclusions               int
	)
	reasons := make([]models.ScreeningReason, 0, len(patient.Outcomes))

	for _, outcome := range patient.Outcomes {
		reasons = append(reasons, models.ScreeningReason{
			Type:   outcome.Type,
			Met:    outcome.Met,
			Detail: outcome.Detail,
		})
		switch outcome.Type {
		case "exclusion":
			exclusionTotal++
			if outcome.Met {
				if outcome.HardExclusion {
					hardExclusions++
				} else {
					softExclusions++
				}
			}
		default:
			inclusionTotal++
			if outcome.Met {
				inclusionMet++
			}
		}
	}

	inclusionScore := 0.0
	if inclusionTotal > 0 {
		inclusionScore = float64(inclusionMet) / float64(inclusionTotal)
	}
	exclusionScore := 1.0 - float64(hardExclusions)/math.Max(float64(exclusionTotal), 1)

	confidence := weightInclusion*inclusionScore +
		weightExclusion*exclusionScore +
		weightData*clamp01(patient.DataCompleteness) +
		weightNLP*clamp01(patient.NLPConfidence)
	if softExclusions > 0 {
		confidence *= softExclusionPenalty
	}
	confidence = round3(confidence)

	var status string
	switch {
	case hardExclusions > 0:
		confidence = round3(math.Min(confidence, hardExclusionCeiling))
		status = StatusIneligible
	case confidence >= highlyEligibleThreshold:
		status = StatusHighlyEligible
	case confidence >= potentiallyEligibleThreshold:
		status = StatusPotentiallyEligible
	default:
		status = StatusUncertain
	}

	criteriaMet := inclusionMet
	for _, outcome := range patient.Outcomes {
		if outcome.Type == "exclusion" && !outcome.Met {
			criteriaMet++
		}
	}

	return models.ScreeningResult{
		PatientID:         patient.PatientID,
		EligibilityStatus: status,
		Confidence:        confidence,
		CriteriaMet:       criteriaMet,
		CriteriaTotal:     len(patient.Outcomes),
		Reasons:           reasons,
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
