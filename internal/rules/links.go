package rules

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gruppenwerk/outreach-cli/internal/model"
)

// DefaultLinkKey names the company-level fallback link.
const DefaultLinkKey = "default"

// LinkTable maps company id → segment id → promo material URL. Each company
// may carry a "default" entry.
type LinkTable map[string]map[string]string

// LoadLinks reads a link table file.
func LoadLinks(path string) (LinkTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(model.ErrConfiguration, "links: read %s: %v", path, err)
	}
	return ParseLinks(data)
}

// ParseLinks decodes a link table from YAML.
func ParseLinks(data []byte) (LinkTable, error) {
	links := LinkTable{}
	if err := yaml.Unmarshal(data, &links); err != nil {
		return nil, eris.Wrapf(model.ErrConfiguration, "links: decode yaml: %v", err)
	}
	return links, nil
}

// Resolve returns the segment link, then the company default, then "".
func (t LinkTable) Resolve(companyID, segmentID string) string {
	companyLinks, ok := t[companyID]
	if !ok {
		zap.L().Warn("links: no links configured for company", zap.String("company", companyID))
		return ""
	}

	if link := companyLinks[segmentID]; link != "" {
		return link
	}

	def := companyLinks[DefaultLinkKey]
	if def != "" {
		zap.L().Debug("links: using company default link",
			zap.String("company", companyID),
			zap.String("segment", segmentID),
		)
	} else {
		zap.L().Warn("links: no link for segment and no company default",
			zap.String("company", companyID),
			zap.String("segment", segmentID),
		)
	}
	return def
}
