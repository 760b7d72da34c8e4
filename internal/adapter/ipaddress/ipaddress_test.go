package ipaddress

import (
	"context"
	"fmt"
	"net/netip"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/where/internal/domain"
	"github.com/couchcryptid/where/internal/observability"
)

var testIP = netip.MustParseAddr("203.0.113.7")

type staticDiscoverer struct {
	ip  netip.Addr
	err error
}

func (d staticDiscoverer) ExternalIP(context.Context) (netip.Addr, error) { return d.ip, d.err }

type countingLookup struct {
	code  string
	err   error
	calls atomic.Int32
}

func (l *countingLookup) LookupCountry(context.Context, netip.Addr) (string, error) {
	l.calls.Add(1)
	return l.code, l.err
}

func TestProbe_Success(t *testing.T) {
	p := NewProbe(staticDiscoverer{ip: testIP}, &countingLookup{code: "NL"}, time.Minute)

	got, err := p.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "NL", got.RegionCode)
	assert.Equal(t, domain.SourceIPAddress, p.Source())
	assert.Equal(t, time.Minute, p.Interval())
}

func TestProbe_Failures(t *testing.T) {
	tests := []struct {
		name    string
		d       staticDiscoverer
		l       *countingLookup
		wantErr error
	}{
		{"discovery unreachable", staticDiscoverer{err: fmt.Errorf("dial: %w", domain.ErrUnreachable)}, &countingLookup{code: "NL"}, domain.ErrUnreachable},
		{"lookup unreachable", staticDiscoverer{ip: testIP}, &countingLookup{err: domain.ErrUnreachable}, domain.ErrUnreachable},
		{"no country", staticDiscoverer{ip: testIP}, &countingLookup{}, domain.ErrNoData},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewProbe(tc.d, tc.l, 0).Probe(context.Background())
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCachedLookup_CallsInnerOncePerKey(t *testing.T) {
	inner := &countingLookup{code: "NL"}
	c := NewCachedLookup(inner, 10, observability.NewMetricsForTesting())
	ctx := context.Background()

	for range 3 {
		code, err := c.LookupCountry(ctx, testIP)
		require.NoError(t, err)
		assert.Equal(t, "NL", code)
	}
	assert.Equal(t, int32(1), inner.calls.Load())

	_, err := c.LookupCountry(ctx, netip.MustParseAddr("198.51.100.1"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCachedLookup_DoesNotCacheEmptyOrErrors(t *testing.T) {
	inner := &countingLookup{}
	c := NewCachedLookup(inner, 10, observability.NewMetricsForTesting())
	ctx := context.Background()

	_, _ = c.LookupCountry(ctx, testIP)
	_, _ = c.LookupCountry(ctx, testIP)
	assert.Equal(t, int32(2), inner.calls.Load())

	inner.err = domain.ErrUnreachable
	_, err := c.LookupCountry(ctx, testIP)
	require.ErrorIs(t, err, domain.ErrUnreachable)
	assert.Equal(t, int32(3), inner.calls.Load())
}
