package export

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// FileStats is the row count of one exported campaign file.
type FileStats struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// Stats counts the data rows (header excluded) of every .csv file in dir,
// sorted by file name.
func Stats(ctx context.Context, dir string, sep rune) ([]FileStats, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, eris.Wrapf(err, "export: list %s", dir)
	}
	sort.Strings(paths)

	out := make([]FileStats, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, path := range paths {
		g.Go(func() error {
			n, err := countRows(gctx, path, sep)
			if err != nil {
				return err
			}
			out[i] = FileStats{Name: filepath.Base(path), Rows: n}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func countRows(ctx context.Context, path string, sep rune) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, eris.Wrapf(err, "export: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	if sep != 0 {
		r.Comma = sep
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var n int
	for {
		if ctx.Err() != nil {
			return 0, eris.Wrap(ctx.Err(), "export: count rows")
		}
		_, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, eris.Wrapf(err, "export: read %s", path)
		}
		n++
	}
	if n > 0 {
		n-- // header
	}
	return n, nil
}
