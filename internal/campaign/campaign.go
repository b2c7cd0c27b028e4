// Package campaign runs a full generation pass: assign leads to companies,
// personalize and render one message per assignment, and export the rows.
package campaign

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gruppenwerk/outreach-cli/internal/config"
	"github.com/gruppenwerk/outreach-cli/internal/export"
	"github.com/gruppenwerk/outreach-cli/internal/model"
	"github.com/gruppenwerk/outreach-cli/internal/personalize"
	"github.com/gruppenwerk/outreach-cli/internal/render"
	"github.com/gruppenwerk/outreach-cli/internal/rules"
	"github.com/gruppenwerk/outreach-cli/internal/segment"
)

// Runner holds everything one generation run needs.
type Runner struct {
	cfg          *config.Config
	rules        *rules.RuleSet
	links        rules.LinkTable
	renderer     *render.Renderer
	personalizer *personalize.Personalizer
	now          func() time.Time
}

// New creates a Runner from already loaded parts.
func New(cfg *config.Config, rs *rules.RuleSet, links rules.LinkTable, r *render.Renderer, p *personalize.Personalizer) *Runner {
	return &Runner{
		cfg:          cfg,
		rules:        rs,
		links:        links,
		renderer:     r,
		personalizer: p,
		now:          time.Now,
	}
}

// Setup loads rules, links and templates named by cfg and builds the text
// generator. With noAI set, or without a credential, icebreakers come from
// the fallback catalog.
func Setup(cfg *config.Config, noAI bool) (*Runner, error) {
	rs, err := rules.Load(cfg.RulesPath)
	if err != nil {
		return nil, err
	}
	links, err := rules.LoadLinks(cfg.LinksPath)
	if err != nil {
		return nil, err
	}
	renderer, err := render.New(cfg.TemplatesDir)
	if err != nil {
		return nil, err
	}

	var gen personalize.Generator
	if !noAI && cfg.AI.Enabled {
		gen, err = personalize.NewGenerator(cfg.AI)
		if err != nil {
			return nil, err
		}
	}
	p := personalize.New(gen, rs, cfg.AI, personalize.WithFallbackOnly(noAI))

	return New(cfg, rs, links, renderer, p), nil
}

// Personalizer returns the icebreaker generator.
func (r *Runner) Personalizer() *personalize.Personalizer { return r.personalizer }

// Summary reports the outcome of one run.
type Summary struct {
	Leads            int                     `json:"leads"`
	Assignments      int                     `json:"assignments"`
	Batches          int                     `json:"batches"`
	Emails           int                     `json:"emails"`
	SkippedTemplates int                     `json:"skipped_templates"`
	Fallbacks        int                     `json:"fallbacks"`
	Exported         int                     `json:"exported"`
	Files            []string                `json:"files"`
	Validation       export.ValidationReport `json:"validation"`
	Segments         *segment.Stats          `json:"segments,omitempty"`
}

// Run assigns leads (optionally to one company only), generates one
// message per assignment and writes the campaign files. An unknown company
// filter fails before any work is done. Runs where nothing could be
// assigned or rendered return a summary without writing files.
func (r *Runner) Run(ctx context.Context, leads []*model.Lead, companyFilter string) (*Summary, error) {
	assignments, stats, err := segment.AssignAll(leads, r.rules, companyFilter)
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		Leads:       len(leads),
		Assignments: len(assignments),
		Segments:    stats,
	}
	if len(assignments) == 0 {
		zap.L().Warn("campaign: no assignments, nothing to generate")
		return sum, nil
	}

	var rows []model.OutputRow
	batches := Chunk(assignments, r.cfg.BatchSize)
	sum.Batches = len(batches)
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return sum, eris.Wrap(err, "campaign: run cancelled")
		}
		zap.L().Info("campaign: processing batch",
			zap.Int("batch", i+1),
			zap.Int("batches", len(batches)),
			zap.Int("size", len(batch)),
		)

		out, res := r.processBatch(ctx, batch)
		rows = append(rows, out...)
		sum.SkippedTemplates += res.skipped
		sum.Fallbacks += res.fallbacks
	}
	sum.Emails = len(rows)

	if len(rows) == 0 {
		zap.L().Warn("campaign: no emails generated", zap.Int("skipped_templates", sum.SkippedTemplates))
		return sum, nil
	}

	res, err := export.Export(rows, r.cfg.OutputDir, export.Options{
		Separator:     firstRune(r.cfg.Export.Separator),
		Encoding:      r.cfg.Export.Encoding,
		MinBodyLength: r.cfg.Export.MinBodyLength,
	}, r.now())
	if err != nil {
		return sum, err
	}
	sum.Exported = res.Rows
	sum.Files = res.Files
	sum.Validation = res.Validation

	zap.L().Info("campaign: run complete",
		zap.Int("emails", sum.Emails),
		zap.Int("skipped_templates", sum.SkippedTemplates),
		zap.Int("fallbacks", sum.Fallbacks),
		zap.Int("exported", sum.Exported),
		zap.Int("files", len(sum.Files)),
	)
	return sum, nil
}

type batchResult struct {
	skipped   int
	fallbacks int
}

func (r *Runner) processBatch(ctx context.Context, batch []model.Assignment) ([]model.OutputRow, batchResult) {
	var res batchResult
	texts := r.personalizer.GenerateBatch(ctx, batch)

	rows := make([]model.OutputRow, 0, len(batch))
	for i, a := range batch {
		if texts[i].Source == model.SourceFallback {
			res.fallbacks++
		}
		msg, err := r.Message(a, texts[i].Text)
		if err != nil {
			res.skipped++
			zap.L().Error("campaign: skipping row",
				zap.String("email", a.Email()),
				zap.String("company", a.CompanyID),
				zap.String("segment", a.SegmentID),
				zap.Error(err),
			)
			continue
		}
		rows = append(rows, export.BuildRow(a.Lead, msg, a.CompanyID, a.SegmentID, r.cfg.CampaignPrefix))
	}
	return rows, res
}

// Message resolves the promo link and renders the template for one
// assignment with the given icebreaker.
func (r *Runner) Message(a model.Assignment, icebreaker string) (*model.Rendered, error) {
	link := r.links.Resolve(a.CompanyID, a.SegmentID)
	return r.renderer.Email(a.CompanyID, a.SegmentID, a.Lead, icebreaker, link, r.cfg.SenderName)
}

// PreviewItem is one rendered message shown by Preview.
type PreviewItem struct {
	Assignment model.Assignment
	Message    *model.Rendered
}

// Preview renders the first count assignments with fallback icebreakers.
// Assignments whose template is missing are skipped.
func (r *Runner) Preview(leads []*model.Lead, count int) ([]PreviewItem, error) {
	assignments, _, err := segment.AssignAll(leads, r.rules, "")
	if err != nil {
		return nil, err
	}
	if count < len(assignments) {
		assignments = assignments[:max(count, 0)]
	}

	texts := personalize.FallbackBatch(assignments)
	out := make([]PreviewItem, 0, len(assignments))
	for i, a := range assignments {
		msg, err := r.Message(a, texts[i])
		if errors.Is(err, model.ErrTemplateNotFound) {
			zap.L().Warn("campaign: preview template missing",
				zap.String("company", a.CompanyID),
				zap.String("segment", a.SegmentID))
			continue
		}
		if err != nil {
			return out, err
		}
		out = append(out, PreviewItem{Assignment: a, Message: msg})
	}
	return out, nil
}

// Chunk splits assignments into consecutive batches of at most size.
func Chunk(assignments []model.Assignment, size int) [][]model.Assignment {
	if size < 1 {
		size = 1
	}
	var out [][]model.Assignment
	for start := 0; start < len(assignments); start += size {
		end := min(start+size, len(assignments))
		out = append(out, assignments[start:end])
	}
	return out
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return ','
}
