// Package vendors holds the per-vendor HTTP clients and their normalization
// into canonical records. Vendor-specific shapes, field names and unit quirks
// (millisecond vs second timestamps, string prices, parallel arrays) must not
// leak out of this package.
package vendors

import (
	"errors"
	"time"

	domsvc "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/service"
	xhttp "github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/http"
)

// base centralizes client construction for vendor wrappers.
type base struct {
	name    string
	apiKey  string
	baseURL string
	client  *xhttp.Client
}

func newBase(name, apiKey, baseURL string, timeout time.Duration) base {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return base{
		name:    name,
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

func (b *base) Name() string { return b.name }

func (b *base) url(path string) string { return b.baseURL + path }

// clampSentiment bounds a vendor sentiment score to [-1, 1].
func clampSentiment(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// errMalformed marks a response whose shape did not match the vendor
// contract. The sequencer treats it like any other vendor failure; wrapping
// in VendorError lets callers recover the vendor name from the trail.
func errMalformed(vendor, detail string) error {
	return &domsvc.VendorError{Vendor: vendor, Err: errors.New("malformed response: " + detail)}
}
