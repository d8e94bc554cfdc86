package transport

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"golang.org/x/net/proxy"

	"metastore-cluster/address"
)

const DefaultConnectTimeout = 10 * time.Second

// TCPFactory dials metastores over TCP, optionally through a SOCKS5 proxy.
type TCPFactory struct {
	Timeout    time.Duration // per dial, DefaultConnectTimeout if zero
	SocksProxy string        // host:port or socks5://[user:pass@]host:port
}

// Conn is a connected TCP client.
type Conn struct {
	net.Conn
	addr address.HostPort
}

func (c *Conn) Addr() address.HostPort { return c.addr }

func (f *TCPFactory) Connect(ctx context.Context, addr address.HostPort) (Client, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer, err := f.dialer(timeout)
	if err != nil {
		return nil, &ConnectError{Addr: addr, Err: err}
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		return nil, &ConnectError{Addr: addr, Err: err}
	}
	return &Conn{Conn: conn, addr: addr}, nil
}

func (f *TCPFactory) dialer(timeout time.Duration) (proxy.ContextDialer, error) {
	direct := &net.Dialer{Timeout: timeout}
	if f.SocksProxy == "" {
		return direct, nil
	}

	u, err := parseSocksProxy(f.SocksProxy)
	if err != nil {
		return nil, err
	}
	d, err := proxy.FromURL(u, direct)
	if err != nil {
		return nil, fmt.Errorf("socks proxy %s: %w", f.SocksProxy, err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("socks proxy %s: dialer does not support contexts", f.SocksProxy)
	}
	return cd, nil
}

func parseSocksProxy(s string) (*url.URL, error) {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		// bare host:port
		u = &url.URL{Scheme: "socks5", Host: s}
	}
	if _, _, err := net.SplitHostPort(u.Host); err != nil {
		return nil, fmt.Errorf("socks proxy %q: %w", s, err)
	}
	return u, nil
}
