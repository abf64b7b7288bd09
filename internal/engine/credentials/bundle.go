// Package credentials manages the shared browser-session cookie bundle:
// reading the Netscape-format export, isolating a private per-request copy
// behind a cross-process lock, and validating that a copy still represents
// an authenticated session.
package credentials

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Record is one session-token line from a Netscape cookies.txt export:
// domain, include-subdomains flag, path, secure flag, expiry, name, value.
type Record struct {
	Domain     string
	Subdomains bool
	Path       string
	Secure     bool
	Expires    int64
	Name       string
	Value      string
	HTTPOnly   bool
}

// Bundle is the parsed, read-only view of a cookie export.
type Bundle struct {
	Records []Record
}

const httpOnlyPrefix = "#HttpOnly_"

// ParseBundle parses Netscape cookies.txt content. Malformed lines are
// skipped rather than rejected; curl and browser extensions disagree on
// details and a stale export should still be inspectable.
func ParseBundle(data []byte) Bundle {
	var b Bundle
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		httpOnly := false
		if strings.HasPrefix(line, httpOnlyPrefix) {
			httpOnly = true
			line = strings.TrimPrefix(line, httpOnlyPrefix)
		} else if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}
		expires, _ := strconv.ParseInt(fields[4], 10, 64)
		b.Records = append(b.Records, Record{
			Domain:     fields[0],
			Subdomains: strings.EqualFold(fields[1], "TRUE"),
			Path:       fields[2],
			Secure:     strings.EqualFold(fields[3], "TRUE"),
			Expires:    expires,
			Name:       fields[5],
			Value:      strings.Join(fields[6:], "\t"),
			HTTPOnly:   httpOnly,
		})
	}
	return b
}

// Names returns the set of token names present in the bundle.
func (b Bundle) Names() map[string]bool {
	names := make(map[string]bool, len(b.Records))
	for _, r := range b.Records {
		names[r.Name] = true
	}
	return names
}

// Cookies converts records matching the given domain suffix into http.Cookie
// values suitable for a cookie jar. Session cookies (expiry 0) are kept.
func (b Bundle) Cookies(domainSuffix string) []*http.Cookie {
	var out []*http.Cookie
	for _, r := range b.Records {
		host := strings.TrimPrefix(r.Domain, ".")
		if domainSuffix != "" && !strings.HasSuffix(host, domainSuffix) {
			continue
		}
		c := &http.Cookie{
			Name:     r.Name,
			Value:    r.Value,
			Path:     r.Path,
			Domain:   r.Domain,
			Secure:   r.Secure,
			HttpOnly: r.HTTPOnly,
		}
		if r.Expires > 0 {
			c.Expires = time.Unix(r.Expires, 0)
		}
		out = append(out, c)
	}
	return out
}

// Empty reports whether the bundle holds no usable records.
func (b Bundle) Empty() bool {
	return len(b.Records) == 0
}
