// Package segment assigns leads to client companies and message segments.
package segment

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gruppenwerk/outreach-cli/internal/model"
	"github.com/gruppenwerk/outreach-cli/internal/rules"
)

// Match weights. A lead qualifies at MatchThreshold, so size alone never does.
const (
	IndustryWeight = 0.5
	TitleWeight    = 0.3
	SizeWeight     = 0.2
	MatchThreshold = 0.5
)

var firstNumber = regexp.MustCompile(`\d+`)

// Match scores a lead against one company rule. The score is the sum of the
// weights of the checks that pass, and matched == score >= MatchThreshold.
func Match(lead *model.Lead, rule *rules.CompanyRule) (bool, float64) {
	score := 0.0

	if containsAny(strings.TrimSpace(lead.Industry), rule.Industries) {
		score += IndustryWeight
	}
	if containsAny(strings.TrimSpace(lead.Title), rule.TitleKeywords) {
		score += TitleWeight
	}
	if ParseSize(lead.CompanySize) >= rule.MinSize {
		score += SizeWeight
	}

	return score >= MatchThreshold, score
}

// ParseSize extracts the lower bound from a free-text company size such as
// "51-200", "200+" or "1,000-5,000". Thousands separators are removed first.
// Unparseable input yields 0.
func ParseSize(raw string) int {
	if raw == "" {
		return 0
	}
	cleaned := strings.NewReplacer(",", "", ".", "").Replace(raw)
	digits := firstNumber.FindString(cleaned)
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

// containsAny reports whether any term occurs in value, case-insensitively.
// Only this direction is checked: configured term inside the lead's value.
func containsAny(value string, terms []string) bool {
	lower := strings.ToLower(value)
	for _, t := range terms {
		if strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
