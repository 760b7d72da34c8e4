// Package dnsip discovers the external IP address with a DNS echo query.
package dnsip

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/miekg/dns"

	"github.com/couchcryptid/where/internal/domain"
	"github.com/couchcryptid/where/internal/observability"
)

// OpenDNS answers this name with the address of the querying client.
const (
	DefaultServer = "resolver1.opendns.com:53"
	echoName      = "myip.opendns.com."
)

// Resolver implements ipaddress.IPDiscoverer.
type Resolver struct {
	server  string
	client  *dns.Client
	metrics *observability.Metrics
}

// NewResolver creates a resolver querying server ("host:port").
func NewResolver(server string, timeout time.Duration, metrics *observability.Metrics) *Resolver {
	if server == "" {
		server = DefaultServer
	}
	return &Resolver{
		server:  server,
		client:  &dns.Client{Net: "udp", Timeout: timeout},
		metrics: metrics,
	}
}

// ExternalIP returns the IPv4 address the echo server sees.
func (r *Resolver) ExternalIP(ctx context.Context) (netip.Addr, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(echoName, dns.TypeA)

	start := time.Now()
	in, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	r.metrics.APIDuration.WithLabelValues("dns").Observe(time.Since(start).Seconds())
	if err != nil {
		r.metrics.APIRequests.WithLabelValues("dns", "error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return netip.Addr{}, fmt.Errorf("dns exchange with %s: %w", r.server, ctxErr)
		}
		return netip.Addr{}, fmt.Errorf("dns exchange with %s: %w: %w", r.server, err, domain.ErrUnreachable)
	}
	if in.Rcode != dns.RcodeSuccess {
		r.metrics.APIRequests.WithLabelValues("dns", "empty").Inc()
		return netip.Addr{}, fmt.Errorf("dns %s: %w", dns.RcodeToString[in.Rcode], domain.ErrNoData)
	}

	for _, rr := range in.Answer {
		a, ok := rr.(*dns.A)
		if !ok {
			continue
		}
		if ip, ok := netip.AddrFromSlice(a.A.To4()); ok {
			r.metrics.APIRequests.WithLabelValues("dns", "success").Inc()
			return ip, nil
		}
	}
	r.metrics.APIRequests.WithLabelValues("dns", "empty").Inc()
	return netip.Addr{}, fmt.Errorf("dns: no A record for %s: %w", echoName, domain.ErrNoData)
}
