package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// DefaultServer is the local stub resolver queried when none is configured.
const DefaultServer = "127.0.0.53:53"

// ErrNoTargets is returned when a name has no SRV records.
var ErrNoTargets = errors.New("no SRV targets")

// Target is one server announced by an SRV record.
type Target struct {
	Host     string
	Port     uint16
	Priority uint16
	Weight   uint16
}

// Addr returns host:port.
func (t Target) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(int(t.Port)))
}

// URL returns the base URL of the target's HTTP API.
func (t Target) URL(scheme string) string {
	return scheme + "://" + t.Addr()
}

// Resolver queries a single DNS server for SRV records.
type Resolver struct {
	server string
	client *dns.Client
}

// NewResolver creates a resolver for server (host:port). An empty server
// means DefaultServer.
func NewResolver(server string, timeout time.Duration) *Resolver {
	if server == "" {
		server = DefaultServer
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}

	return &Resolver{
		server: server,
		client: &dns.Client{Timeout: timeout},
	}
}

// Server returns the address queried by the resolver.
func (r *Resolver) Server() string {
	return r.server
}

// LookupSRV resolves name into targets ordered by priority, then by
// descending weight. Trailing dots are removed from target hosts.
func (r *Resolver) LookupSRV(ctx context.Context, name string) ([]Target, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeSRV)
	msg.RecursionDesired = true

	in, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return nil, fmt.Errorf("SRV query for %s failed: %w", name, err)
	}
	if in.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("SRV query for %s failed: %s", name, dns.RcodeToString[in.Rcode])
	}

	targets := make([]Target, 0, len(in.Answer))
	for _, answer := range in.Answer {
		srv, ok := answer.(*dns.SRV)
		if !ok {
			continue
		}
		targets = append(targets, Target{
			Host:     strings.TrimSuffix(srv.Target, "."),
			Port:     srv.Port,
			Priority: srv.Priority,
			Weight:   srv.Weight,
		})
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoTargets, name)
	}

	slices.SortStableFunc(targets, func(a, b Target) int {
		if a.Priority != b.Priority {
			return int(a.Priority) - int(b.Priority)
		}
		return int(b.Weight) - int(a.Weight)
	})

	return targets, nil
}
