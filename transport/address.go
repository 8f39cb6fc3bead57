package transport

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/sjohnr/jzmq-sdk-sub001/errors"
)

// Scheme identifies the transport kind of an address.
type Scheme string

// Supported and recognised schemes.
const (
	SchemeInproc Scheme = "inproc"
	SchemeTCP    Scheme = "tcp"
	SchemeWS     Scheme = "ws"
	SchemePGM    Scheme = "pgm"
	SchemeEPGM   Scheme = "epgm"
)

// Address is a parsed endpoint address.
type Address struct {
	Scheme Scheme
	// Host is host:port for tcp and ws, the group spec for pgm/epgm and the
	// name for inproc.
	Host string
	// Path is the HTTP path of a ws endpoint.
	Path string
}

// ParseAddress parses "scheme://location".
func ParseAddress(raw string) (Address, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return Address{}, fmt.Errorf("%w: %q has no scheme", errors.ErrInvalidAddress, raw)
	}

	switch Scheme(scheme) {
	case SchemeInproc:
		if rest == "" {
			return Address{}, fmt.Errorf("%w: empty inproc name", errors.ErrInvalidAddress)
		}
		return Address{Scheme: SchemeInproc, Host: rest}, nil

	case SchemeTCP:
		hostPort, err := parseHostPort(rest)
		if err != nil {
			return Address{}, err
		}
		return Address{Scheme: SchemeTCP, Host: hostPort}, nil

	case SchemeWS:
		u, err := url.Parse(raw)
		if err != nil {
			return Address{}, fmt.Errorf("%w: %v", errors.ErrInvalidAddress, err)
		}
		hostPort, err := parseHostPort(u.Host)
		if err != nil {
			return Address{}, err
		}
		path := u.Path
		if path == "" {
			path = "/"
		}
		return Address{Scheme: SchemeWS, Host: hostPort, Path: path}, nil

	case SchemePGM, SchemeEPGM:
		if rest == "" {
			return Address{}, fmt.Errorf("%w: empty multicast group", errors.ErrInvalidAddress)
		}
		return Address{Scheme: Scheme(scheme), Host: rest}, nil

	default:
		return Address{}, fmt.Errorf("%w: %q", errors.ErrUnsupportedTransport, scheme)
	}
}

func parseHostPort(s string) (string, error) {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidAddress, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return "", fmt.Errorf("%w: bad port %q", errors.ErrInvalidAddress, port)
	}
	if host == "*" {
		host = ""
	}
	return net.JoinHostPort(host, port), nil
}

// String formats the address back into its canonical form.
func (a Address) String() string {
	switch a.Scheme {
	case SchemeWS:
		return fmt.Sprintf("ws://%s%s", a.Host, a.Path)
	default:
		return fmt.Sprintf("%s://%s", a.Scheme, a.Host)
	}
}

func (a Address) supported() bool {
	return a.Scheme == SchemeInproc || a.Scheme == SchemeTCP || a.Scheme == SchemeWS
}
