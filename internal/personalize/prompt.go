package personalize

import (
	"strings"

	"github.com/gruppenwerk/outreach-cli/internal/model"
	"github.com/gruppenwerk/outreach-cli/internal/rules"
)

// SystemPrompt is the fixed German instruction sent with every icebreaker
// request. The braced names in the examples are literal placeholders the
// model must keep.
const SystemPrompt = `Du bist ein deutscher Vertriebstexter für ein Handwerksunternehmen aus Hamburg.

Schreibe einen personalisierten ersten Satz (maximal 2 Sätze) für eine Kaltakquise-E-Mail an den Empfänger, den die Nachricht beschreibt.

Regeln:
- Auf Deutsch schreiben
- Professionell aber warmherzig, nicht steif oder formell
- Beziehe dich auf die Branche oder den Jobtitel des Empfängers
- Nenne KEINEN konkreten Preis oder Prozentsatz
- Stelle keine Frage im Icebreaker
- Maximal 2 Sätze
- Kein "Sehr geehrte/r", starte direkt mit dem Inhalt nach "Hallo {first_name},"

Beispiele für gute Icebreaker:
- "als Facility Manager bei einer der größeren Hamburger Hausverwaltungen wissen Sie, wie wichtig kurze Reaktionszeiten bei Reparaturen sind."
- "wir arbeiten bereits mit mehreren Hausverwaltungen im Raum Hamburg zusammen und haben gesehen, dass bei der Fassadensanierung häufig Gerüstbau-Kapazitäten der Engpass sind."
- "mit über 200 Mitarbeitern und einem wachsenden Immobilienbestand stehen bei {company_name} vermutlich regelmäßig Instandhaltungsthemen auf der Agenda."

Schreibe NUR den Icebreaker, nichts anderes.`

// promptTemplate carries the per-lead data of one request.
const promptTemplate = `Empfänger:
- Name: <first_name> <last_name>
- Titel: <title>
- Firma: <company_name>
- Branche: <industry>
- Firmengröße: <company_size>
- Stadt: <city>

Absender-Firma: <sender_company>
Absender-Leistung: <core_offering>`

// BuildPrompt renders the user message for one assignment; it is sent
// together with SystemPrompt. company may
// be nil, in which case the company id stands in for its display name. An
// empty lead city is replaced by cityDefault.
func BuildPrompt(a model.Assignment, company *rules.CompanyRule, cityDefault string) string {
	lead := a.Lead
	if lead == nil {
		lead = &model.Lead{}
	}

	senderCompany, offering := a.CompanyID, ""
	if company != nil {
		if company.DisplayName != "" {
			senderCompany = company.DisplayName
		}
		offering = company.CoreOffering
	}

	city := lead.City
	if strings.TrimSpace(city) == "" {
		city = cityDefault
	}

	r := strings.NewReplacer(
		"<first_name>", lead.FirstName,
		"<last_name>", lead.LastName,
		"<title>", lead.Title,
		"<company_name>", lead.CompanyName,
		"<industry>", lead.Industry,
		"<company_size>", lead.CompanySize,
		"<city>", city,
		"<sender_company>", senderCompany,
		"<core_offering>", offering,
	)
	return r.Replace(promptTemplate)
}
