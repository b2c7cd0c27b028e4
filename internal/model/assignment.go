package model

import "strings"

// Assignment pairs a lead with a qualifying company and the message segment
// chosen for it. Score is in [0.0, 1.0].
type Assignment struct {
	Lead      *Lead   `json:"lead"`
	CompanyID string  `json:"company_id"`
	SegmentID string  `json:"segment_id"`
	Score     float64 `json:"match_score"`
}

// Email returns the lead's identity key, or "?" when the lead is missing.
func (a Assignment) Email() string {
	if a.Lead == nil || a.Lead.Email == "" {
		return "?"
	}
	return a.Lead.Email
}

// PersonalizationSource records where an icebreaker came from.
type PersonalizationSource string

const (
	SourceAI       PersonalizationSource = "ai"
	SourceFallback PersonalizationSource = "fallback"
)

// Personalization is the short opening text attached to one assignment.
type Personalization struct {
	Text   string                `json:"icebreaker"`
	Source PersonalizationSource `json:"source"`
}

// MaxPersonalizationLen caps generated icebreakers, in characters.
const MaxPersonalizationLen = 200

// TruncatePersonalization trims text and hard-truncates it to
// MaxPersonalizationLen characters, ending in "..." when cut.
func TruncatePersonalization(text string) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if len(r) <= MaxPersonalizationLen {
		return text
	}
	return string(r[:MaxPersonalizationLen-3]) + "..."
}
