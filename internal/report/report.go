// Package report implements the downstream consumer side of a sweep:
// turning each scan result into a signed report and handing it to the
// outgoing queue, once per completed scan.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/netsweep/netsweep/internal/scanning"
)

// Report is the serialized form of one scan result, as handed to the
// downstream pipeline.
type Report struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Category is the stable scan category string.
	Category string `json:"category"`

	// Target is the canonical CIDR form of the scan target; omitted for
	// untargeted scans.
	Target string `json:"target,omitempty"`

	// Hosts are the discovered addresses, in engine reporting order.
	Hosts []string `json:"hosts"`

	// Hostnames maps addresses to reverse-DNS names when enrichment is
	// enabled and a PTR record exists.
	Hostnames map[string]string `json:"hostnames,omitempty"`

	HostsUp     int   `json:"hosts_up"`
	HostsDown   int   `json:"hosts_down"`
	HostsTotal  int   `json:"hosts_total"`
	DurationSec int64 `json:"duration_sec"`
}

// NewReport builds a report from a completed scan result.
func NewReport(result *scanning.Result) *Report {
	hosts := make([]string, 0, len(result.Hosts))
	for _, addr := range result.Hosts {
		hosts = append(hosts, addr.String())
	}

	return &Report{
		ID:          uuid.New(),
		CreatedAt:   time.Now().UTC(),
		Category:    result.Category.String(),
		Target:      result.Target,
		Hosts:       hosts,
		HostsUp:     result.Stats.Up,
		HostsDown:   result.Stats.Down,
		HostsTotal:  result.Stats.Total,
		DurationSec: int64(result.Duration.Seconds()),
	}
}

// Envelope wraps a report with its signature for transport.
type Envelope struct {
	Report    *Report   `json:"report"`
	Signature Signature `json:"signature"`
}
