package personalize

import (
	"strings"

	"github.com/gruppenwerk/outreach-cli/internal/model"
	"github.com/gruppenwerk/outreach-cli/internal/rules"
)

// fallbackCatalog holds the canned icebreakers per segment. {title} and
// {company_name} are the only placeholders.
var fallbackCatalog = map[string]string{
	"hausverwaltung": "als {title} bei {company_name} haben Sie sicher regelmäßig mit " +
		"Instandhaltungsthemen zu tun \u2014 von Türen über Fenster bis zur Fassade.",
	"bauunternehmen": "bei Bauprojekten in Hamburg kommt es auf zuverlässige Partner an, " +
		"die pünktlich liefern und Qualität garantieren.",
	"oeffentlich": "öffentliche Gebäude stellen besondere Anforderungen an Qualität, " +
		"Sicherheit und Vergabekonformität \u2014 genau darauf haben wir uns spezialisiert.",
	"denkmalschutz": "die Arbeit an denkmalgeschützten Gebäuden erfordert besonderes " +
		"Fingerspitzengefühl und Erfahrung \u2014 beides bringen wir seit Jahrzehnten mit.",
	"gewerbe": "für gewerbliche Immobilien mit hoher Nutzungsfrequenz sind schnelle " +
		"und professionelle Handwerksleistungen unverzichtbar.",
	"privat": "für Ihr Bau- oder Sanierungsprojekt möchten wir Ihnen eine " +
		"unkomplizierte und professionelle Zusammenarbeit anbieten.",
}

// FallbackSegments returns the segment ids with a dedicated fallback text.
func FallbackSegments() []string {
	return []string{"hausverwaltung", "bauunternehmen", "oeffentlich", "denkmalschutz", "gewerbe", "privat"}
}

// Fallback returns the deterministic icebreaker for a. Unknown segments use
// the default segment's text. It never performs I/O.
func Fallback(a model.Assignment) string {
	tmpl, ok := fallbackCatalog[a.SegmentID]
	if !ok {
		tmpl = fallbackCatalog[rules.DefaultSegmentID]
	}

	var title, company string
	if a.Lead != nil {
		title, company = a.Lead.Title, a.Lead.CompanyName
	}
	return strings.NewReplacer("{title}", title, "{company_name}", company).Replace(tmpl)
}

// FallbackBatch maps Fallback over assignments.
func FallbackBatch(assignments []model.Assignment) []string {
	out := make([]string, len(assignments))
	for i, a := range assignments {
		out[i] = Fallback(a)
	}
	return out
}
