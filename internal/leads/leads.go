// Package leads reads lead exports (CSV or XLSX), normalizes their columns
// and drops rows that cannot be addressed.
package leads

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gruppenwerk/outreach-cli/internal/model"
)

// maxInvalidExamples caps how many rejected addresses are logged.
const maxInvalidExamples = 5

// Report counts what happened to the rows of one export.
type Report struct {
	Rows          int `json:"rows"`
	MissingFields int `json:"missing_fields"`
	InvalidEmails int `json:"invalid_emails"`
	Duplicates    int `json:"duplicates"`
	Leads         int `json:"leads"`
}

// Load fetches input when it is remote, reads it and returns the cleaned
// leads. With dedupe set, later rows repeating an email are dropped.
func Load(ctx context.Context, input string, dedupe bool) ([]*model.Lead, *Report, error) {
	tmp, err := os.MkdirTemp("", "outreach-leads-*")
	if err != nil {
		return nil, nil, eris.Wrap(err, "leads: create temp dir")
	}
	defer os.RemoveAll(tmp) //nolint:errcheck

	path, err := Fetch(ctx, input, tmp)
	if err != nil {
		return nil, nil, err
	}

	all, err := Read(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	report := &Report{Rows: len(all)}

	out, dropped := Clean(all)
	report.MissingFields = dropped

	out, invalid := ValidateEmails(out)
	report.InvalidEmails = invalid

	if dedupe {
		var dups int
		out, dups = Dedupe(out)
		report.Duplicates = dups
	}
	report.Leads = len(out)

	zap.L().Info("leads: loaded",
		zap.String("input", filepath.Base(path)),
		zap.Int("rows", report.Rows),
		zap.Int("missing_fields", report.MissingFields),
		zap.Int("invalid_emails", report.InvalidEmails),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("leads", report.Leads),
	)
	return out, report, nil
}

// Read parses a .csv or .xlsx export into leads. The first row is the
// header. Every required column must be present; optional columns missing
// from the file are filled with "". Values are trimmed.
func Read(ctx context.Context, path string) ([]*model.Lead, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "leads: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		rows, err = readCSV(ctx, f, csvOptions{LazyQuotes: true})
	case ".xlsx":
		rows, err = readXLSX(path)
	default:
		return nil, eris.Wrapf(model.ErrConfiguration, "leads: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, eris.Wrapf(err, "leads: read %s", path)
	}
	if len(rows) == 0 {
		return nil, eris.Wrapf(model.ErrConfiguration, "leads: %s is empty", path)
	}

	return fromRows(rows)
}

func fromRows(rows [][]string) ([]*model.Lead, error) {
	header := make([]string, len(rows[0]))
	seen := make(map[string]bool, len(header))
	for i, h := range rows[0] {
		header[i] = normalizeHeader(h)
		seen[header[i]] = true
	}

	var missing []string
	for _, f := range model.RequiredFields {
		if !seen[f] {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Wrapf(model.ErrConfiguration, "leads: missing required columns: %s", strings.Join(missing, ", "))
	}

	out := make([]*model.Lead, 0, len(rows)-1)
	for _, rec := range rows[1:] {
		if isBlank(rec) {
			continue
		}
		row := make(map[string]string, len(header)+len(model.OptionalFields))
		for _, f := range model.OptionalFields {
			row[f] = ""
		}
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(rec) {
				row[name] = strings.TrimSpace(rec[i])
			} else {
				row[name] = ""
			}
		}
		out = append(out, model.NewLead(row))
	}
	return out, nil
}

// normalizeHeader maps "First Name" and "first_name" to the same column.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Clean drops leads without a first name, email or company name and
// returns how many were dropped.
func Clean(in []*model.Lead) ([]*model.Lead, int) {
	out := make([]*model.Lead, 0, len(in))
	for _, l := range in {
		if l.FirstName == "" || l.Email == "" || !l.HasCompanyName() {
			continue
		}
		out = append(out, l)
	}
	dropped := len(in) - len(out)
	if dropped > 0 {
		zap.L().Warn("leads: dropped rows with missing required values",
			zap.Int("count", dropped),
			zap.Strings("fields", []string{model.FieldFirstName, model.FieldEmail, model.FieldCompanyName}),
		)
	}
	return out, dropped
}

var validate = validator.New()

// ValidateEmails drops leads whose email is not a syntactically valid
// address and returns how many were dropped.
func ValidateEmails(in []*model.Lead) ([]*model.Lead, int) {
	out := make([]*model.Lead, 0, len(in))
	var bad []string
	for _, l := range in {
		if err := validate.Var(l.Email, "required,email"); err != nil {
			bad = append(bad, l.Email)
			continue
		}
		out = append(out, l)
	}
	if len(bad) > 0 {
		examples := bad
		if len(examples) > maxInvalidExamples {
			examples = append(examples[:maxInvalidExamples:maxInvalidExamples], "...")
		}
		zap.L().Warn("leads: dropped invalid email addresses",
			zap.Int("count", len(bad)),
			zap.String("examples", strings.Join(examples, ", ")),
		)
	}
	return out, len(bad)
}

// Dedupe keeps the first lead per email and returns how many repeats were
// removed.
func Dedupe(in []*model.Lead) ([]*model.Lead, int) {
	seen := make(map[string]struct{}, len(in))
	out := make([]*model.Lead, 0, len(in))
	for _, l := range in {
		if _, ok := seen[l.Email]; ok {
			continue
		}
		seen[l.Email] = struct{}{}
		out = append(out, l)
	}
	if removed := len(in) - len(out); removed > 0 {
		zap.L().Info("leads: removed duplicate emails", zap.Int("count", removed))
	}
	return out, len(in) - len(out)
}

// String renders the report for CLI output.
func (r *Report) String() string {
	return fmt.Sprintf("%d rows, %d leads (%d missing fields, %d invalid emails, %d duplicates)",
		r.Rows, r.Leads, r.MissingFields, r.InvalidEmails, r.Duplicates)
}
