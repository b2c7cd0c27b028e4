package leads

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
)

// utf8BOM prefixes CSV files saved by Excel.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// csvOptions configures the streaming CSV parser.
type csvOptions struct {
	Delimiter  rune // 0 = sniff from the header line
	LazyQuotes bool
}

// streamCSV reads r and sends every record, header included, to the row
// channel. Errors are sent on the error channel. Both channels are closed
// when processing completes.
func streamCSV(ctx context.Context, r io.Reader, opts csvOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		br := bufio.NewReader(r)
		if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
			_, _ = br.Discard(len(utf8BOM))
		}

		delim := opts.Delimiter
		if delim == 0 {
			delim = sniffDelimiter(br)
		}

		reader := csv.NewReader(br)
		reader.Comma = delim
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1 // allow variable fields

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// sniffDelimiter picks ';' over ',' when the first line has more of them,
// which is how German Excel exports CSV.
func sniffDelimiter(br *bufio.Reader) rune {
	line, _ := br.Peek(4096)
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

// readCSV collects all records from r.
func readCSV(ctx context.Context, r io.Reader, opts csvOptions) ([][]string, error) {
	rowCh, errCh := streamCSV(ctx, r, opts)

	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return rows, nil
}
