// Package export validates output rows and writes one CSV file per campaign.
package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/gruppenwerk/outreach-cli/internal/model"
)

// Options controls how campaign files are written.
type Options struct {
	Separator     rune
	Encoding      string
	MinBodyLength int
}

// Result describes one export.
type Result struct {
	Files      []string         `json:"files"`
	Rows       int              `json:"rows"`
	Validation ValidationReport `json:"validation"`
}

// FileName is the name of the file written for a campaign on day t.
func FileName(campaignID string, t time.Time) string {
	return campaignID + "_" + t.Format("2006-01-02") + ".csv"
}

// Export validates rows and writes one file per campaign into dir, dated
// with now. An empty input writes nothing.
func Export(rows []model.OutputRow, dir string, opts Options, now time.Time) (*Result, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create %s", dir)
	}
	if len(rows) == 0 {
		zap.L().Warn("export: no rows to export")
		return &Result{}, nil
	}

	valid, rep := Validate(rows, opts.MinBodyLength)
	res := &Result{Rows: len(valid), Validation: rep}

	for _, c := range SplitByCampaign(valid) {
		path := filepath.Join(dir, FileName(c.ID, now))
		if err := writeFile(path, c.Rows, opts); err != nil {
			return res, err
		}
		zap.L().Info("export: wrote campaign file",
			zap.String("campaign_id", c.ID),
			zap.String("path", path),
			zap.Int("rows", len(c.Rows)),
		)
		res.Files = append(res.Files, path)
	}

	zap.L().Info("export: complete",
		zap.Int("rows", res.Rows),
		zap.Int("files", len(res.Files)),
	)
	return res, nil
}

func writeFile(path string, rows []model.OutputRow, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := WriteCSV(f, rows, opts); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "export: write %s", path)
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}

// WriteCSV writes the header and rows to w in OutputColumns order, using
// the configured separator and character encoding. Characters the target
// encoding cannot represent are replaced.
func WriteCSV(w io.Writer, rows []model.OutputRow, opts Options) error {
	enc, bom, err := lookupEncoding(opts.Encoding)
	if err != nil {
		return err
	}
	if bom {
		if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return eris.Wrap(err, "export: write bom")
		}
	}
	var tw *transform.Writer
	if enc != nil {
		tw = transform.NewWriter(w, encoding.ReplaceUnsupported(enc.NewEncoder()))
		w = tw
	}

	cw := csv.NewWriter(w)
	if opts.Separator != 0 {
		cw.Comma = opts.Separator
	}
	if err := cw.Write(model.OutputColumns); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush")
	}
	if tw != nil {
		return eris.Wrap(tw.Close(), "export: flush encoder")
	}
	return nil
}

// lookupEncoding resolves an export.encoding name. A nil encoding means
// UTF-8 passthrough; bom reports whether a UTF-8 byte order mark is written.
// latin-1 is strict ISO-8859-1; the HTML index would map it to windows-1252.
func lookupEncoding(name string) (enc encoding.Encoding, bom bool, err error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "", "utf-8", "utf8":
		return nil, false, nil
	case "utf-8-sig":
		return nil, true, nil
	case "latin-1", "latin1", "iso-8859-1":
		return charmap.ISO8859_1, false, nil
	default:
		name = n
	}
	enc, err = htmlindex.Get(name)
	if err != nil {
		return nil, false, eris.Wrapf(model.ErrConfiguration, "export: unsupported encoding %q", name)
	}
	return enc, false, nil
}

func sortCampaigns(cs []Campaign) {
	slices.SortFunc(cs, func(a, b Campaign) int { return strings.Compare(a.ID, b.ID) })
}
