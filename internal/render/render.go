// Package render fills the per-company, per-segment message templates.
//
// Templates live at <dir>/<company>/<segment>.txt and use Liquid syntax
// ({{ first_name }}, {{ city | default: "Hamburg" }}). The first line starting
// with "Betreff:" or "Subject:" becomes the subject; the rest is the body.
package render

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/osteele/liquid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gruppenwerk/outreach-cli/internal/model"
)

// subjectMarkers are matched case-insensitively at the start of a line.
var subjectMarkers = []string{"betreff:", "subject:"}

// Renderer loads and caches templates from a directory.
type Renderer struct {
	dir    string
	engine *liquid.Engine
	cache  sync.Map // "company/segment" -> *liquid.Template
}

// New creates a Renderer for dir. The directory must exist.
func New(dir string) (*Renderer, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, eris.Wrapf(model.ErrConfiguration, "render: templates directory not found: %s", dir)
	}

	engine := liquid.NewEngine()
	engine.RegisterFilter("first_word", func(s string) string {
		if f := strings.Fields(s); len(f) > 0 {
			return f[0]
		}
		return ""
	})

	return &Renderer{dir: dir, engine: engine}, nil
}

// Path returns the template file for a company and segment.
func (r *Renderer) Path(companyID, segmentID string) string {
	return filepath.Join(r.dir, companyID, segmentID+".txt")
}

// Render fills the template for companyID/segmentID with vars. A missing
// template returns model.ErrTemplateNotFound.
func (r *Renderer) Render(companyID, segmentID string, vars map[string]any) (string, error) {
	tpl, err := r.template(companyID, segmentID)
	if err != nil {
		return "", err
	}

	out, rerr := tpl.RenderString(vars)
	if rerr != nil {
		return "", eris.Wrapf(rerr, "render: %s/%s", companyID, segmentID)
	}
	return out, nil
}

// Email renders the message for one lead. Template variables are every lead
// field plus icebreaker, pdf_link and sender_name.
func (r *Renderer) Email(companyID, segmentID string, lead *model.Lead, icebreaker, link, sender string) (*model.Rendered, error) {
	vars := lead.Vars()
	vars["icebreaker"] = icebreaker
	vars["pdf_link"] = link
	vars["sender_name"] = sender

	text, err := r.Render(companyID, segmentID, vars)
	if err != nil {
		return nil, err
	}

	subject, body := SplitSubject(text)
	if subject == "" {
		zap.L().Warn("render: no subject line in template",
			zap.String("template", r.Path(companyID, segmentID)))
	}

	return &model.Rendered{
		Subject:    subject,
		Body:       body,
		Icebreaker: icebreaker,
		Link:       link,
	}, nil
}

func (r *Renderer) template(companyID, segmentID string) (*liquid.Template, error) {
	key := companyID + "/" + segmentID
	if cached, ok := r.cache.Load(key); ok {
		return cached.(*liquid.Template), nil
	}

	path := r.Path(companyID, segmentID)
	src, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrapf(model.ErrTemplateNotFound, "render: %s", key)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "render: read %s", path)
	}

	tpl, perr := r.engine.ParseTemplate(src)
	if perr != nil {
		return nil, eris.Wrapf(perr, "render: parse %s", path)
	}

	actual, _ := r.cache.LoadOrStore(key, tpl)
	return actual.(*liquid.Template), nil
}

// SplitSubject separates the subject line from the body of rendered text.
// The first line whose trimmed text starts with a subject marker wins; the
// body starts at the next non-blank line after it. Without a marker the
// subject is empty and the whole text is the body.
func SplitSubject(text string) (subject, body string) {
	lines := strings.Split(strings.TrimSpace(text), "\n")

	start := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		for _, marker := range subjectMarkers {
			if !strings.HasPrefix(lower, marker) {
				continue
			}
			subject = strings.TrimSpace(trimmed[len(marker):])
			start = i + 1
			for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
				start++
			}
			return subject, strings.TrimSpace(strings.Join(lines[start:], "\n"))
		}
	}
	return "", strings.TrimSpace(strings.Join(lines[start:], "\n"))
}
