package credentials

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func bundleWith(names ...string) Bundle {
	var b Bundle
	for _, n := range names {
		b.Records = append(b.Records, Record{Domain: ".youtube.com", Name: n, Value: "x"})
	}
	return b
}

func TestCheckContents(t *testing.T) {
	tests := []struct {
		name   string
		bundle Bundle
		valid  bool
		reason Reason
	}{
		{
			name:   "empty bundle",
			bundle: Bundle{},
			reason: ReasonMissingEntries,
		},
		{
			name:   "all plain markers",
			bundle: bundleWith("LOGIN_INFO", "VISITOR_INFO1_LIVE", "SID", "PREF", "SSID"),
			valid:  true,
		},
		{
			name:   "secure variants satisfy plain names",
			bundle: bundleWith("LOGIN_INFO", "VISITOR_INFO1_LIVE", "__Secure-3PSID", "PREF", "__Secure-SSID"),
			valid:  true,
		},
		{
			name:   "secure session pair stands in for login marker",
			bundle: bundleWith("VISITOR_INFO1_LIVE", "__Secure-1PSID", "PREF", "SSID"),
			valid:  true,
		},
		{
			name:   "missing session marker",
			bundle: bundleWith("LOGIN_INFO", "VISITOR_INFO1_LIVE", "PREF", "SSID"),
			reason: ReasonMissingEntries,
		},
		{
			name:   "anonymous export",
			bundle: bundleWith("VISITOR_INFO1_LIVE", "PREF"),
			reason: ReasonMissingEntries,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CheckContents(tt.bundle)
			assert.Equal(t, tt.valid, res.Valid, res.Detail)
			if !tt.valid {
				assert.Equal(t, tt.reason, res.Reason)
			}
		})
	}
}

func TestCheckContentsReportsMissingNames(t *testing.T) {
	res := CheckContents(bundleWith("PREF"))
	assert.False(t, res.Valid)
	assert.Contains(t, res.Detail, "LOGIN_INFO")
	assert.Contains(t, res.Detail, "SID")
	assert.NotContains(t, res.Detail, "PREF")
}

func TestClassifyProbeError(t *testing.T) {
	tests := []struct {
		err    error
		reason Reason
	}{
		{errors.New("HTTP 403: unusual traffic from your network"), ReasonExpired},
		{errors.New("HTTP 401: unauthorized"), ReasonExpired},
		{errors.New("please sign in to continue"), ReasonExpired},
		{errors.New("response indicates captcha challenge"), ReasonExpired},
		{errors.New("dial tcp: connection refused"), ReasonNetwork},
		{errors.New("HTTP 502: bad gateway"), ReasonNetwork},
		{context.DeadlineExceeded, ReasonNetwork},
		{fmt.Errorf("probe: %w", context.Canceled), ReasonNetwork},
	}
	for _, tt := range tests {
		res := classifyProbeError(tt.err)
		assert.Equal(t, tt.reason, res.Reason, "error %q", tt.err)
		assert.False(t, res.Valid)
	}
}

func TestHasMarker(t *testing.T) {
	names := map[string]bool{"__Secure-1PSID": true, "PREF": true}
	assert.True(t, hasMarker(names, "SID"))
	assert.True(t, hasMarker(names, "PREF"))
	assert.False(t, hasMarker(names, "LOGIN_INFO"))
}
