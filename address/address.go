// Package address parses the configured metastore endpoint list.
//
// Each comma-separated entry is a URI:
//
//	thrift://host:port              static address, dialed directly
//	consul://agent:8500/service     looked up in a Consul agent
//	etcd://endpoint:2379/service    looked up under the etcd registry prefix
//
// The first entry is the primary, the rest are fallbacks.
package address

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

const (
	SchemeThrift = "thrift"
	SchemeConsul = "consul"
	SchemeEtcd   = "etcd"
)

var (
	ErrEmpty      = errors.New("address: no metastore URIs configured")
	ErrInvalidURI = errors.New("address: invalid metastore URI")
)

// Kind tells a static address apart from a discovery reference.
type Kind int

const (
	Static Kind = iota
	Discovery
)

func (k Kind) String() string {
	switch k {
	case Static:
		return "static"
	case Discovery:
		return "discovery"
	}
	return "unknown"
}

// HostPort is one concrete network address.
type HostPort struct {
	Host string
	Port int
}

func (hp HostPort) String() string {
	return net.JoinHostPort(hp.Host, strconv.Itoa(hp.Port))
}

// Ref names a service in a discovery directory.
type Ref struct {
	Scheme    string // consul or etcd
	Authority string // directory address, may be empty
	Service   string
}

func (r Ref) String() string {
	return r.Scheme + "://" + r.Authority + "/" + r.Service
}

// Spec is one configured endpoint. Exactly one of Addr and Ref is meaningful,
// depending on Kind.
type Spec struct {
	Kind Kind
	Addr HostPort
	Ref  Ref
	uri  string // as configured
}

// String returns the URI exactly as it was configured.
func (s Spec) String() string {
	if s.uri != "" {
		return s.uri
	}
	if s.Kind == Discovery {
		return s.Ref.String()
	}
	return SchemeThrift + "://" + s.Addr.String()
}

// NewStatic builds a static spec without going through a URI.
func NewStatic(host string, port int) Spec {
	s := Spec{Kind: Static, Addr: HostPort{Host: host, Port: port}}
	s.uri = s.String()
	return s
}

// NewDiscovery builds a discovery spec without going through a URI.
func NewDiscovery(scheme, authority, service string) Spec {
	s := Spec{Kind: Discovery, Ref: Ref{Scheme: scheme, Authority: authority, Service: service}}
	s.uri = s.String()
	return s
}

// ParseError reports which entry of the list could not be parsed.
type ParseError struct {
	URI    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid metastore URI %q: %s", e.URI, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrInvalidURI }

// Parse splits a comma-separated URI list. Blank entries are ignored.
func Parse(list string) ([]Spec, error) {
	var specs []Spec
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		spec, err := ParseURI(item)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return nil, ErrEmpty
	}
	return specs, nil
}

// ParseURI parses a single endpoint URI.
func ParseURI(raw string) (Spec, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Spec{}, &ParseError{URI: raw, Reason: err.Error()}
	}

	switch strings.ToLower(u.Scheme) {
	case SchemeThrift:
		if u.Path != "" && u.Path != "/" {
			return Spec{}, &ParseError{URI: raw, Reason: "unexpected path"}
		}
		hp, err := splitHostPort(u.Host)
		if err != nil {
			return Spec{}, &ParseError{URI: raw, Reason: err.Error()}
		}
		return Spec{Kind: Static, Addr: hp, uri: raw}, nil

	case SchemeConsul, SchemeEtcd:
		service := strings.Trim(u.Path, "/")
		if service == "" {
			return Spec{}, &ParseError{URI: raw, Reason: "missing service name"}
		}
		if u.Port() != "" {
			if _, err := splitHostPort(u.Host); err != nil {
				return Spec{}, &ParseError{URI: raw, Reason: err.Error()}
			}
		}
		ref := Ref{Scheme: strings.ToLower(u.Scheme), Authority: u.Host, Service: service}
		return Spec{Kind: Discovery, Ref: ref, uri: raw}, nil

	case "":
		return Spec{}, &ParseError{URI: raw, Reason: "missing scheme"}
	}
	return Spec{}, &ParseError{URI: raw, Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
}

// Strings returns the configured URIs in order.
func Strings(specs []Spec) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.String()
	}
	return out
}

func splitHostPort(hostport string) (HostPort, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return HostPort{}, err
	}
	if host == "" {
		return HostPort{}, errors.New("missing host")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return HostPort{}, fmt.Errorf("invalid port %q", portStr)
	}
	return HostPort{Host: host, Port: port}, nil
}
