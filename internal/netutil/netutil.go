package netutil

import (
	"fmt"
	"net"
)

type IPv4 [4]byte

func (ip IPv4) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", ip[0], ip[1], ip[2], ip[3])
}

// ParseMulticastGroup validates s as an IPv4 multicast address (224.0.0.0/4).
func ParseMulticastGroup(s string) (IPv4, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return IPv4{}, fmt.Errorf("invalid IP address: %q", s)
	}

	ip4 := ip.To4()
	if ip4 == nil {
		return IPv4{}, fmt.Errorf("not a valid IPv4 address: %q", s)
	}

	if !ip4.IsMulticast() {
		return IPv4{}, fmt.Errorf("%s is not a multicast address", ip4)
	}

	return IPv4(ip4), nil
}

func ValidatePort(port uint16) error {
	if port == 0 {
		return fmt.Errorf("port cannot be 0")
	}
	return nil
}

func FormatAddress(host IPv4, port uint16) string {
	return fmt.Sprintf("%s:%d", host.String(), port)
}

// InterfaceByName resolves a multicast-capable interface and its first IPv4
// address. An empty name yields a nil interface, meaning "let the kernel pick".
func InterfaceByName(name string) (*net.Interface, IPv4, error) {
	if name == "" {
		return nil, IPv4{}, nil
	}

	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, IPv4{}, fmt.Errorf("failed to find interface %q: %w", name, err)
	}

	if iface.Flags&net.FlagUp == 0 {
		return nil, IPv4{}, fmt.Errorf("interface %s is down", name)
	}
	if iface.Flags&net.FlagMulticast == 0 {
		return nil, IPv4{}, fmt.Errorf("interface %s does not support multicast", name)
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return nil, IPv4{}, fmt.Errorf("failed to get addresses of %s: %w", name, err)
	}

	for _, addr := range addrs {
		var ifaceIP net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ifaceIP = v.IP
		case *net.IPAddr:
			ifaceIP = v.IP
		}

		if ip4 := ifaceIP.To4(); ip4 != nil {
			return iface, IPv4(ip4), nil
		}
	}

	return nil, IPv4{}, fmt.Errorf("interface %s has no IPv4 address", name)
}
