package transport

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultNetlinkGroup is the connector group joined when a netlink address
// names none.
const DefaultNetlinkGroup = 11

// A Dialer connects to addr and returns a transport.
type Dialer func(addr string) (Transport, error)

// A ListenFunc listens on addr for incoming transports.
type ListenFunc func(addr string) (Listener, error)

// Dialers and Listeners are maps of scheme strings to constructors
// and include all builtin transports.
var (
	Dialers   map[string]Dialer
	Listeners map[string]ListenFunc
)

func init() {
	Dialers = map[string]Dialer{
		"tcp": func(addr string) (Transport, error) {
			return DialTCP(addr)
		},
		"unix": func(addr string) (Transport, error) {
			return DialUnix(addr)
		},
		"ws": func(addr string) (Transport, error) {
			return DialWS(addr)
		},
		"quic": func(addr string) (Transport, error) {
			return DialQUIC(addr)
		},
		"stdio": func(_ string) (Transport, error) {
			return DialStdio()
		},
		"netlink": func(addr string) (Transport, error) {
			group, err := netlinkGroup(addr)
			if err != nil {
				return nil, err
			}
			return DialNetlink(group)
		},
	}
	Listeners = map[string]ListenFunc{
		"tcp": func(addr string) (Listener, error) {
			return ListenTCP(addr)
		},
		"unix": func(addr string) (Listener, error) {
			return ListenUnix(addr)
		},
		"ws": func(addr string) (Listener, error) {
			return ListenWS(addr)
		},
		"quic": func(addr string) (Listener, error) {
			return ListenQUIC(addr, nil)
		},
		"stdio": func(_ string) (Listener, error) {
			return ListenStdio()
		},
		"netlink": func(addr string) (Listener, error) {
			group, err := netlinkGroup(addr)
			if err != nil {
				return nil, err
			}
			return ListenNetlink(group)
		},
	}
}

// ParseURL splits "scheme://addr" into its parts. A bare address is taken
// as tcp.
func ParseURL(u string) (scheme, addr string) {
	parts := strings.SplitN(u, "://", 2)
	if len(parts) == 1 {
		return "tcp", u
	}
	return parts[0], parts[1]
}

// Dial connects to a URL such as "tcp://127.0.0.1:4040" or "netlink://11"
// using a registered transport. In the case of "stdio" the address can be
// left empty.
func Dial(u string) (Transport, error) {
	scheme, addr := ParseURL(u)
	d, ok := Dialers[scheme]
	if !ok {
		return nil, fmt.Errorf("transport '%s' not in available in Dialers", scheme)
	}
	return d(addr)
}

// Listen listens on a URL using a registered transport.
func Listen(u string) (Listener, error) {
	scheme, addr := ParseURL(u)
	l, ok := Listeners[scheme]
	if !ok {
		return nil, fmt.Errorf("transport '%s' not in available in Listeners", scheme)
	}
	return l(addr)
}

func netlinkGroup(addr string) (uint32, error) {
	if addr == "" {
		return DefaultNetlinkGroup, nil
	}
	group, err := strconv.ParseUint(addr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("netlink group %q: %w", addr, err)
	}
	return uint32(group), nil
}
