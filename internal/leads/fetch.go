package leads

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gruppenwerk/outreach-cli/internal/resilience"
)

// fetchTimeout bounds one remote download attempt.
const fetchTimeout = 60 * time.Second

// Fetch makes input available as a local file. Local paths are returned
// unchanged; ftp:// and http(s):// URLs are downloaded into dir, keeping the
// remote file name so the format can still be detected from its extension.
func Fetch(ctx context.Context, input, dir string) (string, error) {
	u, err := url.Parse(input)
	if err != nil || u.Host == "" {
		return input, nil
	}

	var download func(context.Context, *url.URL) (io.ReadCloser, error)
	switch u.Scheme {
	case "ftp":
		download = downloadFTP
	case "http", "https":
		download = downloadHTTP
	default:
		return input, nil
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return "", eris.Errorf("leads: no file name in %s", redact(u))
	}
	dst := filepath.Join(dir, name)

	zap.L().Info("leads: downloading input", zap.String("url", redact(u)), zap.String("dst", dst))

	err = resilience.Do(ctx, resilience.RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		ShouldRetry: isRetryableFetch,
		OnRetry:     resilience.RetryLogger(u.Scheme, "download"),
	}, func(ctx context.Context) error {
		body, err := download(ctx, u)
		if err != nil {
			return err
		}
		defer body.Close() //nolint:errcheck
		return writeFile(dst, body)
	})
	if err != nil {
		return "", eris.Wrapf(err, "leads: fetch %s", redact(u))
	}
	return dst, nil
}

func isRetryableFetch(err error) bool {
	var se *resilience.StatusError
	if eris.As(err, &se) {
		return resilience.IsTransientHTTPStatus(se.StatusCode)
	}
	return true
}

func downloadHTTP(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", "outreach-cli/1.0")

	client := &http.Client{Timeout: fetchTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "http get")
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, resilience.NewStatusError(eris.Errorf("unexpected status %d", resp.StatusCode), resp.StatusCode)
	}
	return resp.Body, nil
}

// ftpConnReader closes the FTP response and the connection together.
type ftpConnReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpConnReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpConnReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "close ftp response")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "quit ftp connection")
	}
	return nil
}

func downloadFTP(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	host, user, pass := ftpTarget(u)

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(fetchTimeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "ftp dial")
	}
	if err := conn.Login(user, pass); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "ftp login")
	}

	resp, err := conn.Retr(u.Path)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "ftp retrieve")
	}
	return &ftpConnReader{resp: resp, conn: conn}, nil
}

// ftpTarget returns host:port and credentials, defaulting to port 21 and
// anonymous login.
func ftpTarget(u *url.URL) (host, user, pass string) {
	host = u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "21")
	}
	user, pass = "anonymous", "anonymous@"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	return host, user, pass
}

func writeFile(dst string, r io.Reader) error {
	f, err := os.Create(dst)
	if err != nil {
		return eris.Wrap(err, "create file")
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return eris.Wrap(err, "write file")
	}
	return eris.Wrap(f.Close(), "close file")
}

// redact masks the password in u for logging.
func redact(u *url.URL) string {
	return u.Redacted()
}
