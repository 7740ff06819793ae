// Package fetcher downloads watchlist feed documents over HTTP and FTP and
// decodes the XML and XLSX payloads the authorities publish.
package fetcher

import (
	"context"
	"strings"
	"time"
)

// Result is one downloaded feed document.
type Result struct {
	Body        []byte
	ETag        string
	RetrievedAt time.Time
}

// Fetcher downloads a feed document from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Result, error)
}

// Client routes URLs to the HTTP or FTP fetcher by scheme. Mirror overrides
// may point individual feeds at ftp:// hosts.
type Client struct {
	http *HTTPFetcher
	ftp  *FTPFetcher
}

// NewClient builds a Client sharing the given HTTP options; the FTP side
// reuses the timeout.
func NewClient(opts HTTPOptions) *Client {
	return &Client{
		http: NewHTTPFetcher(opts),
		ftp:  NewFTPFetcher(FTPOptions{Timeout: opts.Timeout}),
	}
}

// Fetch downloads the URL with the fetcher matching its scheme.
func (c *Client) Fetch(ctx context.Context, url string) (*Result, error) {
	if strings.HasPrefix(strings.ToLower(url), "ftp://") {
		return c.ftp.Fetch(ctx, url)
	}
	return c.http.Fetch(ctx, url)
}
