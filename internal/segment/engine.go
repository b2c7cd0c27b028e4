package segment

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gruppenwerk/outreach-cli/internal/model"
	"github.com/gruppenwerk/outreach-cli/internal/rules"
)

// Stats summarises one assignment pass. It is observability output only.
type Stats struct {
	TotalLeads     int                       `json:"total_leads"`
	Assignments    int                       `json:"assignments"`
	MatchedLeads   int                       `json:"matched_leads"`
	UnmatchedLeads int                       `json:"unmatched_leads"`
	ByCompany      map[string]int            `json:"by_company"`
	BySegment      map[string]map[string]int `json:"by_segment"`
}

// Companies returns the company ids with assignments, sorted.
func (s *Stats) Companies() []string {
	ids := make([]string, 0, len(s.ByCompany))
	for id := range s.ByCompany {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AssignAll matches every lead against every company in scope and resolves a
// segment for each match. A non-empty companyFilter restricts the scope to
// that one company and fails with model.UnknownCompanyError when it is not
// configured. Assignments are ordered by lead, then by company config order.
// Matched leads are counted by distinct email; nil leads are ignored.
func AssignAll(leads []*model.Lead, rs *rules.RuleSet, companyFilter string) ([]model.Assignment, *Stats, error) {
	companies := make([]*rules.CompanyRule, 0, len(rs.Companies))
	if companyFilter != "" {
		c, ok := rs.Company(companyFilter)
		if !ok {
			return nil, nil, eris.Wrap(&model.UnknownCompanyError{
				CompanyID: companyFilter,
				Available: rs.CompanyIDs(),
			}, "segment: assign")
		}
		companies = append(companies, c)
	} else {
		for i := range rs.Companies {
			companies = append(companies, &rs.Companies[i])
		}
	}

	stats := &Stats{
		TotalLeads: len(leads),
		ByCompany:  make(map[string]int),
		BySegment:  make(map[string]map[string]int),
	}

	var out []model.Assignment
	matchedEmails := make(map[string]struct{})
	for _, lead := range leads {
		if lead == nil {
			stats.TotalLeads--
			continue
		}
		matchedAny := false
		for _, c := range companies {
			matched, score := Match(lead, c)
			if !matched {
				continue
			}
			segmentID := Resolve(lead, c, rs.Segments)
			out = append(out, model.Assignment{
				Lead:      lead,
				CompanyID: c.ID,
				SegmentID: segmentID,
				Score:     score,
			})
			matchedAny = true

			stats.ByCompany[c.ID]++
			if stats.BySegment[c.ID] == nil {
				stats.BySegment[c.ID] = make(map[string]int)
			}
			stats.BySegment[c.ID][segmentID]++
		}
		if matchedAny {
			matchedEmails[lead.Email] = struct{}{}
		}
	}

	stats.Assignments = len(out)
	stats.MatchedLeads = len(matchedEmails)
	stats.UnmatchedLeads = stats.TotalLeads - stats.MatchedLeads

	logStats(stats)
	return out, stats, nil
}

func logStats(s *Stats) {
	log := zap.L()
	if s.Assignments == 0 {
		log.Warn("segment: no lead could be assigned", zap.Int("leads", s.TotalLeads))
		return
	}

	log.Info("segment: assignment complete",
		zap.Int("assignments", s.Assignments),
		zap.Int("matched_leads", s.MatchedLeads),
		zap.Int("unmatched_leads", s.UnmatchedLeads),
	)
	if s.UnmatchedLeads > 0 {
		log.Warn("segment: leads without any company", zap.Int("unmatched_leads", s.UnmatchedLeads))
	}
	for _, id := range s.Companies() {
		log.Info("segment: company assignments",
			zap.String("company", id),
			zap.Int("count", s.ByCompany[id]),
			zap.Any("segments", s.BySegment[id]),
		)
	}
}
