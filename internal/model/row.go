package model

// OutputColumns is the column order of exported campaign files.
var OutputColumns = []string{
	"email",
	"first_name",
	"last_name",
	"company_name",
	"personalization",
	"icebreaker",
	"subject_line",
	"pdf_link",
	"campaign_id",
	"segment",
	"custom_variable_1",
	"custom_variable_2",
}

// OutputRow is one exportable message for the campaign sink.
type OutputRow struct {
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	CompanyName string `json:"company_name"`
	Body        string `json:"personalization"`
	Icebreaker  string `json:"icebreaker"`
	Subject     string `json:"subject_line"`
	Link        string `json:"pdf_link"`
	CampaignID  string `json:"campaign_id"`
	Segment     string `json:"segment"`
	Industry    string `json:"custom_variable_1"`
	City        string `json:"custom_variable_2"`
}

// Record returns the row's values in OutputColumns order.
func (r OutputRow) Record() []string {
	return []string{
		r.Email,
		r.FirstName,
		r.LastName,
		r.CompanyName,
		r.Body,
		r.Icebreaker,
		r.Subject,
		r.Link,
		r.CampaignID,
		r.Segment,
		r.Industry,
		r.City,
	}
}

// Rendered is a template rendered for one assignment, split into subject
// line and body.
type Rendered struct {
	Subject    string `json:"subject_line"`
	Body       string `json:"body"`
	Icebreaker string `json:"icebreaker"`
	Link       string `json:"pdf_link"`
}
