package segment

import (
	"strings"

	"github.com/gruppenwerk/outreach-cli/internal/model"
	"github.com/gruppenwerk/outreach-cli/internal/rules"
)

// Resolve picks the message segment for a lead already matched to company.
// Segment rules are tried in configuration order, skipping segments the
// company does not offer; the first satisfied rule wins. Without a winner the
// company's default segment is returned.
func Resolve(lead *model.Lead, company *rules.CompanyRule, segments []rules.SegmentRule) string {
	f := leadFacts{
		industry: strings.TrimSpace(lead.Industry),
		title:    strings.TrimSpace(lead.Title),
		keywords: strings.TrimSpace(lead.Keywords),
		size:     ParseSize(lead.CompanySize),
		hasName:  lead.HasCompanyName(),
	}

	for _, seg := range segments {
		if !company.OffersSegment(seg.ID) {
			continue
		}
		if f.satisfies(seg.Conditions) {
			return seg.ID
		}
	}
	return company.DefaultSegment
}

type leadFacts struct {
	industry string
	title    string
	keywords string
	size     int
	hasName  bool
}

// satisfies evaluates one segment's conditions in fixed priority order.
func (f leadFacts) satisfies(c rules.Conditions) bool {
	if len(c.Keywords) > 0 {
		combined := f.industry + " " + f.title + " " + f.keywords
		if containsAny(combined, c.Keywords) {
			return true
		}
	}

	if len(c.Industries) > 0 && containsAny(f.industry, c.Industries) {
		// A failed title sub-condition rejects the whole segment, size checks included.
		if len(c.TitleKeywords) > 0 {
			return containsAny(f.title, c.TitleKeywords)
		}
		return true
	}

	if c.MinSize != nil && f.size >= *c.MinSize {
		return true
	}

	// Size 0 means unparseable and never satisfies an upper bound.
	if c.MaxSize != nil && f.size > 0 && f.size <= *c.MaxSize {
		return true
	}

	return c.NoCompanyName && !f.hasName
}
