package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxDrainBytes bounds how much of an HTTP body is read before closing.
// The body is never inspected; draining only lets the server finish cleanly.
const maxDrainBytes = 64 << 10

// tcpScheme is the optional prefix accepted on TCP addresses.
const tcpScheme = "tcp://"

// resolver is the subset of [net.Resolver] used by TCP probes.
type resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
	LookupPort(ctx context.Context, network, service string) (int, error)
}

// Prober performs one-shot readiness checks.
//
// A Prober keeps no connections between calls: every TCP probe opens and
// closes a single connection, and every HTTP probe uses its own transport
// with keep-alives disabled. The zero value is not usable; use [New].
type Prober struct {
	resolver resolver
}

// New creates a [Prober] using the default system resolver.
func New() *Prober {
	return &Prober{resolver: net.DefaultResolver}
}

// TCP checks that a TCP connection to address can be established.
//
// address is "host:port", optionally prefixed with "tcp://". The host is
// resolved and only the first resolved address is dialled. Resolution and
// connect share a single deadline of timeout. The connection is closed
// immediately; no data is exchanged.
//
// Returns nil on success, or an [*Error] of kind [KindInvalidAddress] or
// [KindConnectionFailed].
func (p *Prober) TCP(ctx context.Context, address string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target, err := p.resolveFirst(ctx, address)
	if err != nil {
		return err
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return newError(KindConnectionFailed, address, err)
	}
	_ = conn.Close()

	return nil
}

// resolveFirst turns address into a dialable "ip:port" using the first
// resolved IP. An IPv6 zone is kept.
func (p *Prober) resolveFirst(ctx context.Context, address string) (string, error) {
	clean := stripScheme(address)

	host, port, err := net.SplitHostPort(clean)
	if err != nil {
		return "", newError(KindInvalidAddress, address, err)
	}
	if host == "" {
		return "", newError(KindInvalidAddress, address, errors.New("missing host"))
	}

	portNum, err := p.resolver.LookupPort(ctx, "tcp", port)
	if err != nil {
		return "", newError(KindInvalidAddress, address, err)
	}

	addrs, err := p.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return "", newError(KindInvalidAddress, address, err)
	}
	if len(addrs) == 0 {
		return "", &Error{
			Kind:    KindInvalidAddress,
			Message: "no addresses resolved for: " + address,
		}
	}

	return net.JoinHostPort(addrs[0].String(), strconv.Itoa(portNum)), nil
}

// stripScheme removes a leading "tcp://" in any letter case.
func stripScheme(address string) string {
	if len(address) >= len(tcpScheme) && strings.EqualFold(address[:len(tcpScheme)], tcpScheme) {
		return address[len(tcpScheme):]
	}
	return address
}

// HTTP checks that a GET of url returns a 2xx status within timeout.
//
// timeout bounds connect and response together. Redirects are followed by
// the standard client policy. Transport failures and non-2xx statuses are
// both reported as [KindRequestFailed]; the body is discarded unread.
func (p *Prober) HTTP(ctx context.Context, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	transport := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		DisableKeepAlives: true,
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return newError(KindRequestFailed, url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return newError(KindRequestFailed, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Kind:    KindRequestFailed,
			Message: fmt.Sprintf("%s: HTTP %s", url, resp.Status),
		}
	}

	return nil
}
