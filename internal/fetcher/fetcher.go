// Package fetcher retrieves and parses source data: HTTP and FTP downloads,
// local files, and CSV/JSON/XLSX/ZIP decoding.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"

	"github.com/rotisserie/eris"
)

// Fetcher downloads remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Client dispatches source URLs to the right transport. Plain paths and
// file:// URLs open the local filesystem; http(s) and ftp go through the
// respective fetchers. A single Client is shared by every loader in a run.
type Client struct {
	HTTP Fetcher
	FTP  Fetcher
}

// NewClient builds a Client with an HTTP fetcher configured from opts and a
// default FTP fetcher.
func NewClient(opts HTTPOptions) *Client {
	return &Client{
		HTTP: NewHTTPFetcher(opts),
		FTP:  NewFTPFetcher(FTPOptions{}),
	}
}

// Open returns a reader for the source. The caller closes it. A failure here
// is terminal for the run: sources are fetched once, with no retry policy
// beyond what the transport itself does.
func (c *Client) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse source %q", source)
	}

	switch u.Scheme {
	case "http", "https":
		return c.HTTP.Download(ctx, source)
	case "ftp":
		return c.FTP.Download(ctx, source)
	case "", "file":
		path := source
		if u.Scheme == "file" {
			path = u.Path
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", path)
		}
		return f, nil
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
}

// Stage fetches the source into destPath on disk and returns the local path.
// Loaders that need random access (shapefile bundles, XLSX workbooks) use
// this instead of Open. Local sources are returned as-is without copying.
func (c *Client) Stage(ctx context.Context, source, destPath string) (string, error) {
	u, err := url.Parse(source)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: parse source %q", source)
	}

	switch u.Scheme {
	case "http", "https":
		if _, err := c.HTTP.DownloadToFile(ctx, source, destPath); err != nil {
			return "", err
		}
		return destPath, nil
	case "ftp":
		if _, err := c.FTP.DownloadToFile(ctx, source, destPath); err != nil {
			return "", err
		}
		return destPath, nil
	case "", "file":
		if u.Scheme == "file" {
			return u.Path, nil
		}
		return source, nil
	default:
		return "", eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
}
