package doctor

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"
)

// LookupHostFunc resolves a hostname to addresses. net.DefaultResolver
// satisfies it in production.
type LookupHostFunc func(ctx context.Context, host string) ([]string, error)

// DialFunc opens a TCP connection with a timeout. net.DialTimeout
// satisfies it in production.
type DialFunc func(network, address string, timeout time.Duration) (net.Conn, error)

// DefaultDialTimeout bounds the connectivity probe.
const DefaultDialTimeout = 5 * time.Second

// stsHost returns the regional STS endpoint host for a region.
func stsHost(region string) string {
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("sts.%s.amazonaws.com", region)
}

// DNSCheck verifies the regional STS endpoint resolves in DNS.
type DNSCheck struct {
	lookup LookupHostFunc
	region string
}

// NewDNSCheck creates the DNS resolution check. A nil lookup uses the
// default resolver.
func NewDNSCheck(lookup LookupHostFunc, region string) *DNSCheck {
	if lookup == nil {
		lookup = net.DefaultResolver.LookupHost
	}
	return &DNSCheck{lookup: lookup, region: region}
}

// ID returns the check identifier.
func (c *DNSCheck) ID() string { return "endpoint-dns" }

// Name returns the check name.
func (c *DNSCheck) Name() string { return "Endpoint DNS" }

// Description explains what the check verifies.
func (c *DNSCheck) Description() string {
	return "verifies the STS endpoint resolves in DNS"
}

// Stage returns the check's stage.
func (c *DNSCheck) Stage() Stage { return StageConnectivity }

// Execute resolves the regional STS host.
func (c *DNSCheck) Execute(ctx context.Context, dctx *Context) (*Result, error) {
	host := stsHost(c.region)
	addrs, err := c.lookup(ctx, host)
	if err != nil {
		return &Result{
			Status:      StatusFail,
			Message:     fmt.Sprintf("cannot resolve %s: %v", host, err),
			Remediation: "check network connectivity and DNS configuration",
		}, nil
	}
	r := &Result{Status: StatusPass, Message: fmt.Sprintf("%s resolves", host)}
	r.Detail("host", host)
	r.Detail("addresses", len(addrs))
	return r, nil
}

// EndpointCheck verifies a TCP connection can be opened to the regional
// STS endpoint on port 443.
type EndpointCheck struct {
	dial    DialFunc
	region  string
	timeout time.Duration
}

// NewEndpointCheck creates the endpoint reachability check. A nil dial
// uses net.DialTimeout; timeout <= 0 uses DefaultDialTimeout.
func NewEndpointCheck(dial DialFunc, region string, timeout time.Duration) *EndpointCheck {
	if dial == nil {
		dial = net.DialTimeout
	}
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	return &EndpointCheck{dial: dial, region: region, timeout: timeout}
}

// ID returns the check identifier.
func (c *EndpointCheck) ID() string { return "sts-endpoint" }

// Name returns the check name.
func (c *EndpointCheck) Name() string { return "Endpoint reachability" }

// Description explains what the check verifies.
func (c *EndpointCheck) Description() string {
	return "verifies the STS endpoint accepts TCP connections"
}

// Stage returns the check's stage.
func (c *EndpointCheck) Stage() Stage { return StageConnectivity }

// Execute dials the endpoint on port 443.
func (c *EndpointCheck) Execute(ctx context.Context, dctx *Context) (*Result, error) {
	addr := net.JoinHostPort(stsHost(c.region), "443")
	conn, err := c.dial("tcp", addr, c.timeout)
	if err != nil {
		return &Result{
			Status:      StatusFail,
			Message:     fmt.Sprintf("cannot reach %s: %v", addr, err),
			Remediation: "check network connectivity, firewall rules, and proxy settings",
		}, nil
	}
	conn.Close()
	r := &Result{Status: StatusPass, Message: fmt.Sprintf("%s reachable", addr)}
	r.Detail("address", addr)
	return r, nil
}

// ProxyCheck validates proxy environment variables when present.
type ProxyCheck struct {
	getenv GetenvFunc
}

// NewProxyCheck creates the proxy configuration check.
func NewProxyCheck(getenv GetenvFunc) *ProxyCheck {
	return &ProxyCheck{getenv: getenv}
}

// ID returns the check identifier.
func (c *ProxyCheck) ID() string { return "proxy-config" }

// Name returns the check name.
func (c *ProxyCheck) Name() string { return "Proxy configuration" }

// Description explains what the check verifies.
func (c *ProxyCheck) Description() string {
	return "validates proxy environment variables"
}

// Stage returns the check's stage.
func (c *ProxyCheck) Stage() Stage { return StageConnectivity }

// Execute parses any proxy variables that are set.
func (c *ProxyCheck) Execute(ctx context.Context, dctx *Context) (*Result, error) {
	vars := []string{"HTTPS_PROXY", "https_proxy", "HTTP_PROXY", "http_proxy"}
	var set []string
	for _, v := range vars {
		val := c.getenv(v)
		if val == "" {
			continue
		}
		set = append(set, v)
		u, err := url.Parse(val)
		if err != nil || u.Host == "" {
			return &Result{
				Status:      StatusFail,
				Message:     fmt.Sprintf("%s is not a valid URL: %q", v, val),
				Remediation: "fix or unset the proxy variable",
			}, nil
		}
	}
	if len(set) == 0 {
		return &Result{Status: StatusPass, Message: "no proxy configured"}, nil
	}
	r := &Result{Status: StatusPass, Message: "proxy configuration is valid"}
	r.Detail("variables", set)
	if c.getenv("NO_PROXY") == "" && c.getenv("no_proxy") == "" {
		r.Status = StatusWarn
		r.Message = "proxy configured without NO_PROXY"
		r.Remediation = "set NO_PROXY for hosts that must bypass the proxy"
	}
	return r, nil
}
