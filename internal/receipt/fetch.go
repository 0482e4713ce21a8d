package receipt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"path"
	"strings"
	"syscall"
	"time"
)

// Fetcher downloads a receipt published at a URL
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Upload, error)
}

// ErrBlockedAddress is returned when a receipt URL resolves to an address
// that is not publicly routable.
var ErrBlockedAddress = errors.New("address is not publicly routable")

var carrierGradeNAT = netip.MustParsePrefix("100.64.0.0/10")

// HTTPFetcher implements Fetcher over plain HTTP(S)
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher creates a fetcher with a request timeout and a body size limit.
// Unless allowPrivate is set, connections to loopback, private and link-local
// addresses are refused after DNS resolution, redirects included.
func NewHTTPFetcher(timeout time.Duration, maxBytes int64, allowPrivate bool) *HTTPFetcher {
	client := &http.Client{Timeout: timeout}
	if !allowPrivate {
		client.Transport = publicOnlyTransport()
	}
	return NewHTTPFetcherWithClient(client, maxBytes)
}

// NewHTTPFetcherWithClient creates a fetcher around a custom client for testing
func NewHTTPFetcherWithClient(client *http.Client, maxBytes int64) *HTTPFetcher {
	return &HTTPFetcher{
		client:   client,
		maxBytes: maxBytes,
	}
}

// publicOnlyTransport dials directly, never through an environment proxy, so
// the address check sees the real destination.
func publicOnlyTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   refuseNonPublic,
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return transport
}

func refuseNonPublic(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	if !isPublicAddr(addr) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, addr)
	}
	return nil
}

// isPublicAddr rejects loopback, unspecified, link-local, multicast, RFC 1918,
// unique local and carrier-grade NAT addresses.
func isPublicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsGlobalUnicast() && !addr.IsPrivate() && !carrierGradeNAT.Contains(addr)
}

// Fetch downloads rawURL and returns it as an Upload
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Upload, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("url has no host")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading receipt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading receipt: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading receipt body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("receipt is larger than %d bytes", f.maxBytes)
	}

	return &Upload{
		Filename:    filenameFor(u, resp.Header.Get("Content-Disposition")),
		ContentType: strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Type"))),
		Source:      u.String(),
		Data:        data,
	}, nil
}

// filenameFor prefers the server-supplied attachment name over the last
// path segment of the URL.
func filenameFor(u *url.URL, disposition string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
			return path.Base(params["filename"])
		}
	}
	if base := path.Base(u.Path); base != "." && base != "/" {
		return base
	}
	return "download"
}
