package export

import (
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/gruppenwerk/outreach-cli/internal/model"
)

// CampaignID names the campaign a company's rows are uploaded to.
func CampaignID(prefix, companyID string) string {
	return prefix + "_" + companyID
}

// BuildRow assembles the export row for one rendered message.
func BuildRow(lead *model.Lead, msg *model.Rendered, companyID, segmentID, prefix string) model.OutputRow {
	return model.OutputRow{
		Email:       lead.Email,
		FirstName:   lead.FirstName,
		LastName:    lead.LastName,
		CompanyName: lead.CompanyName,
		Body:        msg.Body,
		Icebreaker:  msg.Icebreaker,
		Subject:     msg.Subject,
		Link:        msg.Link,
		CampaignID:  CampaignID(prefix, companyID),
		Segment:     segmentID,
		Industry:    lead.Industry,
		City:        lead.City,
	}
}

// ValidationReport counts rows removed by Validate, by first failed check.
type ValidationReport struct {
	EmptyEmail   int `json:"empty_email"`
	EmptyBody    int `json:"empty_body"`
	EmptySubject int `json:"empty_subject"`
	ShortBody    int `json:"short_body"`
	Duplicates   int `json:"duplicates"`
}

// Removed is the total number of dropped rows.
func (r ValidationReport) Removed() int {
	return r.EmptyEmail + r.EmptyBody + r.EmptySubject + r.ShortBody + r.Duplicates
}

// Validate drops rows that must not be uploaded: empty email, body or
// subject, bodies shorter than minBody characters, and repeats of an email
// within one campaign (the first row is kept).
func Validate(rows []model.OutputRow, minBody int) ([]model.OutputRow, ValidationReport) {
	var rep ValidationReport
	type key struct{ campaign, email string }
	seen := make(map[key]struct{}, len(rows))

	out := make([]model.OutputRow, 0, len(rows))
	for _, r := range rows {
		switch {
		case r.Email == "":
			rep.EmptyEmail++
			continue
		case r.Body == "":
			rep.EmptyBody++
			continue
		case r.Subject == "":
			rep.EmptySubject++
			continue
		case utf8.RuneCountInString(r.Body) < minBody:
			rep.ShortBody++
			continue
		}
		k := key{r.CampaignID, r.Email}
		if _, dup := seen[k]; dup {
			rep.Duplicates++
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}

	if rep.Removed() > 0 {
		zap.L().Warn("export: validation removed rows",
			zap.Int("empty_email", rep.EmptyEmail),
			zap.Int("empty_body", rep.EmptyBody),
			zap.Int("empty_subject", rep.EmptySubject),
			zap.Int("short_body", rep.ShortBody),
			zap.Int("min_body_length", minBody),
			zap.Int("duplicates", rep.Duplicates),
			zap.Int("removed", rep.Removed()),
		)
	}
	return out, rep
}

// Campaign groups the rows of one campaign id.
type Campaign struct {
	ID   string
	Rows []model.OutputRow
}

// SplitByCampaign partitions rows by campaign id, sorted by id. Rows keep
// their relative order within a campaign.
func SplitByCampaign(rows []model.OutputRow) []Campaign {
	idx := make(map[string]int)
	var out []Campaign
	for _, r := range rows {
		i, ok := idx[r.CampaignID]
		if !ok {
			i = len(out)
			idx[r.CampaignID] = i
			out = append(out, Campaign{ID: r.CampaignID})
		}
		out[i].Rows = append(out[i].Rows, r)
	}
	sortCampaigns(out)
	return out
}
