package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gruppenwerk/outreach-cli/internal/campaign"
	"github.com/gruppenwerk/outreach-cli/internal/export"
	"github.com/gruppenwerk/outreach-cli/internal/model"
	"github.com/gruppenwerk/outreach-cli/internal/segment"
)

func TestFormatSummary(t *testing.T) {
	var buf bytes.Buffer
	formatSummary(&buf, &campaign.Summary{
		Assignments:      3,
		Emails:           2,
		SkippedTemplates: 1,
		Fallbacks:        3,
		Exported:         2,
		Files:            []string{"out/gw_seehafer_elemente_2026-10-16.csv"},
	})

	out := buf.String()
	assert.Contains(t, out, "Emails generated:  2")
	assert.Contains(t, out, "Skipped (template): 1")
	assert.Contains(t, out, "-> out/gw_seehafer_elemente_2026-10-16.csv")
}

func TestFormatSummary_Empty(t *testing.T) {
	var buf bytes.Buffer
	formatSummary(&buf, &campaign.Summary{})
	assert.Contains(t, buf.String(), "No lead could be assigned")

	buf.Reset()
	formatSummary(&buf, &campaign.Summary{Assignments: 2, SkippedTemplates: 2})
	assert.Contains(t, buf.String(), "No emails generated (2 skipped)")
}

func TestFormatSegmentStats(t *testing.T) {
	var buf bytes.Buffer
	formatSegmentStats(&buf, &segment.Stats{
		TotalLeads:     4,
		Assignments:    3,
		MatchedLeads:   3,
		UnmatchedLeads: 1,
		ByCompany:      map[string]int{"seehafer_elemente": 2, "brink_tischlerei": 1},
		BySegment: map[string]map[string]int{
			"seehafer_elemente": {"hausverwaltung": 1, "gewerbe": 1},
			"brink_tischlerei":  {"bauunternehmen": 1},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Assignments: 3")
	assert.Contains(t, out, "Unmatched:   1")
	assert.Contains(t, out, "seehafer_elemente")
	assert.Contains(t, out, "hausverwaltung")
	// companies are listed alphabetically
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("brink_tischlerei")), bytes.Index(buf.Bytes(), []byte("seehafer_elemente")))
}

func TestFormatPreview(t *testing.T) {
	var buf bytes.Buffer
	formatPreview(&buf, []campaign.PreviewItem{{
		Assignment: model.Assignment{
			Lead:      &model.Lead{FirstName: "Max", LastName: "Müller", Email: "max@hv.de"},
			CompanyID: "seehafer_elemente",
			SegmentID: "hausverwaltung",
			Score:     0.7,
		},
		Message: &model.Rendered{Subject: "Fenster", Body: "Guten Tag Max"},
	}})

	out := buf.String()
	assert.Contains(t, out, "Preview 1/1")
	assert.Contains(t, out, "Lead: Max Müller (max@hv.de)")
	assert.Contains(t, out, "Company: seehafer_elemente -> hausverwaltung")
	assert.Contains(t, out, "Score: 0.7")
	assert.Contains(t, out, "Subject: Fenster\n---\nGuten Tag Max")

	buf.Reset()
	formatPreview(&buf, nil)
	assert.Contains(t, buf.String(), "Nothing to preview")
}

func TestFormatStats(t *testing.T) {
	var buf bytes.Buffer
	formatStats(&buf, "out", []export.FileStats{
		{Name: "gw_a_2026-10-16.csv", Rows: 2},
		{Name: "gw_b_2026-10-16.csv", Rows: 5},
	})

	out := buf.String()
	assert.Contains(t, out, "gw_a_2026-10-16.csv")
	assert.Contains(t, out, "Total: 7 leads in 2 files")

	buf.Reset()
	formatStats(&buf, "out", nil)
	assert.Contains(t, buf.String(), "No CSV files")
}
