package screening

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/clinprot/regdocs/pkg/common/apperrors"
	"github.com/clinprot/regdocs/pkg/common/models"
)

// Filter is a parsed screening query, e.g.
// "status = HIGHLY ELIGIBLE, confidence >= 0.5 limit 20".
type Filter struct {
	Clauses []FilterClause
	Limit   int
}

type FilterClause struct {
	Field    string
	Operator string
	Value    string
}

var (
	limitRegex  = regexp.MustCompile(`\s+limit\s+(\d+)\s*$`)
	clauseRegex = regexp.MustCompile(`^([a-z_]+)\s*(>=|<=|!=|=|>|<)\s*(.+)$`)
)

// ParseFilter parses the comma-separated clause list PIs use to narrow
// the screening dashboard. Supported fields: status, confidence,
// criteria_met, patient_id.
func ParseFilter(input string) (Filter, error) {
	var filter Filter
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return filter, nil
	}

	if match := limitRegex.FindStringSubmatch(input); len(match) == 2 {
		filter.Limit, _ = strconv.Atoi(match[1])
		input = strings.TrimSpace(limitRegex.ReplaceAllString(input, ""))
	}

	for _, raw := range strings.Split(input, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		match := clauseRegex.FindStringSubmatch(raw)
		if len(match) != 4 {
			return Filter{}, apperrors.Validation("unparseable filter clause " + strconv.Quote(raw))
		}
		clause := FilterClause{
			Field:    match[1],
			Operator: match[2],
			Value:    strings.TrimSpace(match[3]),
		}
		switch clause.Field {
		case "status", "confidence", "criteria_met", "patient_id":
		default:
			return Filter{}, apperrors.Validation("unknown filter field " + clause.Field)
		}
		filter.Clauses = append(filter.Clauses, clause)
	}
	return filter, nil
}

// Apply evaluates the filter over scored results in memory. Result sets
// are per-trial and small, so no query pushdown is needed.
func (f Filter) Apply(results []models.ScreeningResult) []models.ScreeningResult {
	if len(f.Clauses) == 0 && f.Limit == 0 {
		return results
	}
	filtered := make([]models.ScreeningResult, 0, len(results))
	for _, result := range results {
		if f.matches(result) {
			filtered = append(filtered, result)
		}
		if f.Limit > 0 && len(filtered) == f.Limit {
			break
		}
	}
	return filtered
}

func (f Filter) matches(result models.ScreeningResult) bool {
	for _, clause := range f.Clauses {
		switch clause.Field {
		case "status":
			if !compareString(strings.ToLower(result.EligibilityStatus), clause.Operator, clause.Value) {
				return false
			}
		case "patient_id":
			if !compareString(strings.ToLower(result.PatientID), clause.Operator, clause.Value) {
				return false
			}
		case "confidence":
			if !compareNumber(result.Confidence, clause.Operator, clause.Value) {
				return false
			}
		case "criteria_met":
			if !compareNumber(float64(result.CriteriaMet), clause.Operator, clause.Value) {
				return false
			}
		}
	}
	return true
}

func compareString(have, op, want string) bool {
	switch op {
	case "=":
		return have == want
	case "!=":
		return have != want
	default:
		return false
	}
}

func compareNumber(have float64, op, raw string) bool {
	want, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return false
	}
	switch op {
	case "=":
		return have == want
	case "!=":
		return have != want
	case ">":
		return have > want
	case "<":
		return have < want
	case ">=":
		return have >= want
	case "<=":
		return have <= want
	}
	return false
}
