package utils

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/idna"
)

// TargetOptions controls how a user-entered target URL is normalized.
type TargetOptions struct {
	// DefaultScheme is assumed for schemeless input such as "example.com".
	// If empty, a scheme is required.
	DefaultScheme string

	// AllowedSchemes limits the accepted schemes. Empty means http and https.
	AllowedSchemes []string
}

// DefaultTargetOptions accepts http(s) and assumes https when no scheme is given.
func DefaultTargetOptions() TargetOptions {
	return TargetOptions{
		DefaultScheme:  "https",
		AllowedSchemes: []string{"http", "https"},
	}
}

var (
	ErrEmptyURL          = errors.New("empty url")
	ErrMissingHost       = errors.New("missing host")
	ErrUnsupportedScheme = errors.New("unsupported scheme")
	ErrInvalidHost       = errors.New("invalid host")
)

// Target is a parsed and normalized scrape target.
type Target struct {
	URL *url.URL
}

// ParseTarget parses raw into a Target, or explains why it cannot be scraped.
//
// Examples:
//
//	"example.com/a/../b#frag"   → "https://example.com/b"
//	"HTTP://Example.COM:80/"    → "http://example.com/"
//	"https://例え.テスト/"       → "https://xn--r8jz45g.xn--zckzah/"
//	"ftp://example.com"         → ErrUnsupportedScheme
//	"https://bad host/"         → parse error
func ParseTarget(raw string, opts TargetOptions) (*Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyURL
	}

	if opts.DefaultScheme != "" && !strings.Contains(raw, "://") {
		raw = opts.DefaultScheme + "://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("couldn't parse url %s: %w", raw, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if !schemeAllowed(u.Scheme, opts.AllowedSchemes) {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, ErrMissingHost
	}

	host, err := idna.Lookup.ToASCII(strings.ToLower(u.Hostname()))
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidHost, u.Hostname(), err)
	}

	// Preserve non-default port only
	port := u.Port()
	switch {
	case (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443"):
		u.Host = host
	case port != "":
		u.Host = net.JoinHostPort(host, port)
	default:
		u.Host = host
	}

	u.User = nil
	u.Fragment = ""

	if u.Path != "" {
		cleaned := path.Clean(u.Path)
		if strings.HasSuffix(u.Path, "/") && cleaned != "/" {
			cleaned += "/"
		}
		u.Path = cleaned
	} else {
		u.Path = "/"
	}

	return &Target{URL: u}, nil
}

// String returns the canonical form of the target.
func (t *Target) String() string {
	return t.URL.String()
}

// Hostname returns the ASCII host without port.
func (t *Target) Hostname() string {
	return t.URL.Hostname()
}

func schemeAllowed(scheme string, allowed []string) bool {
	if len(allowed) == 0 {
		allowed = []string{"http", "https"}
	}
	for _, a := range allowed {
		if strings.EqualFold(scheme, a) {
			return true
		}
	}
	return false
}
