package phi

import (
	"regexp"
)

type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

// Redactor masks protected health information in free text and in
// structured extraction payloads.
type Redactor struct {
	rules []compiledRule
}

type DetectionResult struct {
	Detected bool     `json:"detected"`
	Types    []string `json:"types"`
	Matches  int      `json:"matches"`
}

func NewRedactor(cfg RulesConfig) (*Redactor, error) {
	var compiled []compiledRule
	for _, rule := range cfg.Rules {
		if !rule.Enabled {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledRule{rule: rule, re: re})
	}
	return &Redactor{rules: compiled}, nil
}

// Detect reports which PHI types appear in the text.
func (r *Redactor) Detect(text string) DetectionResult {
	if r == nil {
		return DetectionResult{}
	}
	result := DetectionResult{}
	seen := make(map[string]struct{})
	for _, rule := range r.rules {
		matches := rule.re.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			continue
		}
		result.Matches += len(matches)
		if _, ok := seen[rule.rule.Type]; !ok {
			seen[rule.rule.Type] = struct{}{}
			result.Types = append(result.Types, rule.rule.Type)
		}
	}
	result.Detected = result.Matches > 0
	return result
}

// RedactText masks every PHI match in the text.
func (r *Redactor) RedactText(text string) string {
	if r == nil {
		return text
	}
	masked := text
	for _, rule := range r.rules {
		masked = rule.re.ReplaceAllString(masked, rule.rule.Mask)
	}
	return masked
}

// RedactMap returns a deep copy of the payload with every string value
// masked. Used on extraction payloads before they are logged or put on
// a progress stream.
func (r *Redactor) RedactMap(data map[string]interface{}) map[string]interface{} {
	if r == nil {
		return data
	}
	out := make(map[string]interface{}, len(data))
	for key, value := range data {
		out[key] = r.redactValue(value)
	}
	return out
}

func (r *Redactor) redactValue(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return r.RedactText(v)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, nested := range v {
			out[k] = r.redactValue(nested)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, nested := range v {
			out[i] = r.redactValue(nested)
		}
		return out
	case []string:
		out := make([]string, len(v))
		for i, nested := range v {
			out[i] = r.RedactText(nested)
		}
		return out
	default:
		return value
	}
}
