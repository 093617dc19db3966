// Package endpoint parses the horus topic-endpoint grammar (spec §6):
//
//	endpoint := topic ['@' location]
//	topic    := non-empty, no '@'
//	location := '*' | 'router' [':' u16] | 'localhost' | ipv4 | ipv6
//	          | '[' ipv6 ']' ':' u16 | ipv4 ':' u16 | '127.0.0.1' | '::1'
//
// Grounded on the original horus_core/src/communication/network/endpoint.rs
// implementation (see original_source/_INDEX.md), re-expressed the Go way:
// a tagged Kind plus typed accessors instead of a Rust enum match.
package endpoint

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Kind tags which of the five endpoint forms a value holds.
type Kind int

const (
	Local Kind = iota
	Localhost
	Direct
	Multicast
	Router
)

func (k Kind) String() string {
	switch k {
	case Local:
		return "local"
	case Localhost:
		return "localhost"
	case Direct:
		return "direct"
	case Multicast:
		return "multicast"
	case Router:
		return "router"
	default:
		return "unknown"
	}
}

const (
	// DefaultDirectPort is the default UDP port for a Direct endpoint.
	DefaultDirectPort = 9870
	// DefaultMulticastAddr/Port is the discovery beacon group.
	DefaultMulticastAddr = "239.255.72.85"
	DefaultMulticastPort = 9871
	// DefaultRouterPort is the default TCP port for a Router endpoint.
	DefaultRouterPort = 7777
)

// Endpoint is the parsed, tagged-variant value. Only the fields relevant to
// Kind are meaningful; HasPort/HasHost report whether Port/Host were given
// explicitly (Router and Localhost carry optional location data).
type Endpoint struct {
	Kind    Kind
	Topic   string
	Host    net.IP // Direct (always set); Router (optional)
	Port    int    // Direct (always set, defaulted); Router/Localhost (optional, 0 if absent)
	HasHost bool
	HasPort bool
}

func local(topic string) Endpoint { return Endpoint{Kind: Local, Topic: topic} }

// Parse implements the grammar above. It never panics: every input string
// returns either a valid Endpoint or a non-empty error (spec property
// "no-crash parse").
func Parse(input string) (Endpoint, error) {
	if !strings.Contains(input, "@") {
		if input == "" {
			return Endpoint{}, fmt.Errorf("endpoint: topic name must not be empty")
		}
		return local(input), nil
	}

	parts := strings.Split(input, "@")
	if len(parts) != 2 {
		return Endpoint{}, fmt.Errorf("endpoint %q: at most one '@' is allowed", input)
	}
	topic, location := parts[0], parts[1]
	if topic == "" {
		return Endpoint{}, fmt.Errorf("endpoint %q: topic name must not be empty", input)
	}

	switch {
	case location == "*":
		return Endpoint{Kind: Multicast, Topic: topic}, nil

	case location == "router":
		return Endpoint{Kind: Router, Topic: topic}, nil

	case strings.HasPrefix(location, "router:"):
		portStr := location[len("router:"):]
		port, err := parsePort(portStr)
		if err != nil {
			return Endpoint{}, fmt.Errorf("endpoint %q: invalid router port %q: %w", input, portStr, err)
		}
		return Endpoint{Kind: Router, Topic: topic, Port: port, HasPort: true}, nil

	case location == "localhost" || location == "127.0.0.1" || location == "::1":
		return Endpoint{Kind: Localhost, Topic: topic}, nil

	case strings.HasPrefix(location, "["):
		return parseBracketedIPv6(input, topic, location)

	default:
		return parseHostLocation(input, topic, location)
	}
}

func parseBracketedIPv6(input, topic, location string) (Endpoint, error) {
	end := strings.IndexByte(location, ']')
	if end < 0 {
		return Endpoint{}, fmt.Errorf("endpoint %q: missing closing ']' in IPv6 address %q", input, location)
	}
	ipStr := location[1:end]
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return Endpoint{}, fmt.Errorf("endpoint %q: invalid IPv6 address %q", input, ipStr)
	}
	rest := location[end+1:]
	if rest == "" {
		return Endpoint{Kind: Direct, Topic: topic, Host: ip, Port: DefaultDirectPort}, nil
	}
	if rest[0] != ':' {
		return Endpoint{}, fmt.Errorf("endpoint %q: expected ':port' after IPv6 address, got %q", input, rest)
	}
	port, err := parsePort(rest[1:])
	if err != nil {
		return Endpoint{}, fmt.Errorf("endpoint %q: invalid port %q: %w", input, rest[1:], err)
	}
	return Endpoint{Kind: Direct, Topic: topic, Host: ip, Port: port}, nil
}

func parseHostLocation(input, topic, location string) (Endpoint, error) {
	// Bare IPv6 (no brackets, no port): parses directly since it contains
	// more than one ':'.
	if ip := net.ParseIP(location); ip != nil {
		return Endpoint{Kind: Direct, Topic: topic, Host: ip, Port: DefaultDirectPort}, nil
	}

	// IPv4:port via the last ':'; a hostname is not resolved and yields an
	// error.
	if idx := strings.LastIndexByte(location, ':'); idx >= 0 {
		hostStr, portStr := location[:idx], location[idx+1:]
		if ip := net.ParseIP(hostStr); ip != nil {
			port, err := parsePort(portStr)
			if err == nil {
				return Endpoint{Kind: Direct, Topic: topic, Host: ip, Port: port}, nil
			}
			return Endpoint{}, fmt.Errorf("endpoint %q: invalid port %q: %w", input, portStr, err)
		}
	}

	return Endpoint{}, fmt.Errorf("endpoint %q: invalid IP address or host:port %q", input, location)
}

func parsePort(s string) (int, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// String reconstructs the canonical endpoint string for an Endpoint,
// satisfying the parse round-trip property for every form emitted by the
// synthesis rules in spec §6.
func (e Endpoint) String() string {
	switch e.Kind {
	case Local:
		return e.Topic
	case Localhost:
		return e.Topic + "@localhost"
	case Multicast:
		return e.Topic + "@*"
	case Router:
		if e.HasPort {
			return fmt.Sprintf("%s@router:%d", e.Topic, e.Port)
		}
		return e.Topic + "@router"
	case Direct:
		if e.Host.To4() == nil {
			return fmt.Sprintf("%s@[%s]:%d", e.Topic, e.Host.String(), e.Port)
		}
		return fmt.Sprintf("%s@%s:%d", e.Topic, e.Host.String(), e.Port)
	default:
		return e.Topic
	}
}
