// Package rules holds the typed segmentation and link configuration, parsed
// once at load time with the YAML insertion order preserved.
package rules

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/gruppenwerk/outreach-cli/internal/model"
)

// DefaultSegmentID is used when a company does not name a default segment.
const DefaultSegmentID = "hausverwaltung"

// CompanyRule describes which leads qualify for one client company.
type CompanyRule struct {
	ID             string   `yaml:"-" json:"id"`
	DisplayName    string   `yaml:"display_name" json:"display_name"`
	Industries     []string `yaml:"branchen" json:"industries"`
	TitleKeywords  []string `yaml:"jobtitel_keywords" json:"title_keywords"`
	MinSize        int      `yaml:"unternehmensgroesse_min" json:"min_size"`
	CoreOffering   string   `yaml:"kernleistung" json:"core_offering"`
	Segments       []string `yaml:"templates" json:"segments"`
	DefaultSegment string   `yaml:"default_template" json:"default_segment"`
}

// OffersSegment reports whether segmentID is one of the company's segments.
func (c *CompanyRule) OffersSegment(segmentID string) bool {
	for _, s := range c.Segments {
		if s == segmentID {
			return true
		}
	}
	return false
}

// Conditions are the checks of one segment rule. Within a rule they are
// evaluated in field order; the first satisfied one selects the segment.
// Nil size bounds mean "not configured".
type Conditions struct {
	Keywords      []string `yaml:"keywords_enthalten" json:"keywords,omitempty"`
	Industries    []string `yaml:"branchen_enthalten" json:"industries,omitempty"`
	TitleKeywords []string `yaml:"titel_enthalten" json:"title_keywords,omitempty"`
	MinSize       *int     `yaml:"unternehmensgroesse_min" json:"min_size,omitempty"`
	MaxSize       *int     `yaml:"unternehmensgroesse_max" json:"max_size,omitempty"`
	NoCompanyName bool     `yaml:"kein_firmenname" json:"no_company_name,omitempty"`
}

// SegmentRule selects a message variant for matched leads.
type SegmentRule struct {
	ID          string     `yaml:"-" json:"id"`
	Description string     `yaml:"beschreibung" json:"description,omitempty"`
	Conditions  Conditions `yaml:"bedingungen" json:"conditions"`
}

// RuleSet is the parsed segmentation configuration. Companies and Segments
// keep the order in which they appear in the source file.
type RuleSet struct {
	Companies []CompanyRule
	Segments  []SegmentRule

	byID map[string]*CompanyRule
}

// NewRuleSet indexes companies and fills per-company defaults.
func NewRuleSet(companies []CompanyRule, segments []SegmentRule) *RuleSet {
	rs := &RuleSet{
		Companies: companies,
		Segments:  segments,
		byID:      make(map[string]*CompanyRule, len(companies)),
	}
	for i := range rs.Companies {
		c := &rs.Companies[i]
		if c.DefaultSegment == "" {
			c.DefaultSegment = DefaultSegmentID
		}
		if c.DisplayName == "" {
			c.DisplayName = c.ID
		}
		rs.byID[c.ID] = c
	}
	return rs
}

// Company returns the rule for id.
func (rs *RuleSet) Company(id string) (*CompanyRule, bool) {
	c, ok := rs.byID[id]
	return c, ok
}

// CompanyIDs lists company ids in configuration order.
func (rs *RuleSet) CompanyIDs() []string {
	ids := make([]string, len(rs.Companies))
	for i, c := range rs.Companies {
		ids[i] = c.ID
	}
	return ids
}

type rawRuleSet struct {
	Companies yaml.Node `yaml:"segmentierung"`
	Segments  yaml.Node `yaml:"template_auswahl"`
}

// Load reads and parses a rules file.
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(model.ErrConfiguration, "rules: read %s: %v", path, err)
	}
	rs, err := Parse(data)
	if err != nil {
		return nil, eris.Wrapf(err, "rules: parse %s", path)
	}
	return rs, nil
}

// Parse decodes rules YAML. The company section is required; the segment
// section is optional.
func Parse(data []byte) (*RuleSet, error) {
	var raw rawRuleSet
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrapf(model.ErrConfiguration, "rules: decode yaml: %v", err)
	}

	if raw.Companies.Kind == 0 {
		return nil, eris.Wrap(model.ErrConfiguration, "rules: missing required key 'segmentierung'")
	}

	var companies []CompanyRule
	err := eachEntry(&raw.Companies, "segmentierung", func(id string, node *yaml.Node) error {
		var c CompanyRule
		if err := node.Decode(&c); err != nil {
			return eris.Wrapf(model.ErrConfiguration, "rules: company %q: %v", id, err)
		}
		c.ID = id
		companies = append(companies, c)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var segments []SegmentRule
	if raw.Segments.Kind != 0 {
		err = eachEntry(&raw.Segments, "template_auswahl", func(id string, node *yaml.Node) error {
			var s SegmentRule
			if err := node.Decode(&s); err != nil {
				return eris.Wrapf(model.ErrConfiguration, "rules: segment %q: %v", id, err)
			}
			s.ID = id
			segments = append(segments, s)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return NewRuleSet(companies, segments), nil
}

// eachEntry walks a YAML mapping in document order.
func eachEntry(node *yaml.Node, section string, fn func(key string, value *yaml.Node) error) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return eris.Wrapf(model.ErrConfiguration, "rules: %s must be a mapping", section)
	}
	seen := make(map[string]struct{}, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := strings.TrimSpace(node.Content[i].Value)
		if _, dup := seen[key]; dup {
			return eris.Wrapf(model.ErrConfiguration, "rules: %s: duplicate key %q", section, key)
		}
		seen[key] = struct{}{}
		if err := fn(key, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}
