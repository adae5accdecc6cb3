package report

import (
	"context"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/netsweep/netsweep/internal/config"
	"github.com/netsweep/netsweep/internal/logging"
)

// Resolver performs best-effort reverse DNS lookups for discovered
// hosts. Lookup failures never fail a report; the address simply stays
// unnamed.
type Resolver struct {
	client  *dns.Client
	server  string
	timeout time.Duration
	logger  *logging.Logger
}

// NewResolver builds a resolver from the reverse DNS configuration, or
// returns nil when enrichment is disabled.
func NewResolver(cfg config.ReverseDNSConfig, logger *logging.Logger) *Resolver {
	if !cfg.Enabled {
		return nil
	}

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	server := cfg.Resolver
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}

	return &Resolver{
		client:  &dns.Client{Timeout: timeout},
		server:  server,
		timeout: timeout,
		logger:  logger.WithComponent("resolver"),
	}
}

// Resolve looks up PTR records for the given addresses and returns a
// map from address string to hostname for every address that resolved.
func (r *Resolver) Resolve(ctx context.Context, addrs []netip.Addr) map[string]string {
	names := make(map[string]string)

	for _, addr := range addrs {
		name, err := r.lookup(ctx, addr)
		if err != nil {
			r.logger.Debug("Reverse lookup failed",
				"address", addr.String(), "error", err)
			continue
		}
		if name != "" {
			names[addr.String()] = name
		}
	}

	return names
}

func (r *Resolver) lookup(ctx context.Context, addr netip.Addr) (string, error) {
	reverse, err := dns.ReverseAddr(addr.String())
	if err != nil {
		return "", err
	}

	msg := new(dns.Msg)
	msg.SetQuestion(reverse, dns.TypePTR)

	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return "", err
	}

	for _, answer := range resp.Answer {
		if ptr, ok := answer.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, "."), nil
		}
	}

	return "", nil
}
