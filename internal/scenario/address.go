package scenario

import (
	"fmt"
	"strconv"
	"strings"
)

// Internet is the subnet index reserved for the outside world. It never holds hosts.
const Internet = 0

// Address identifies a host by subnet index and host index within the subnet.
type Address struct {
	Subnet int
	Host   int
}

// String renders the address the way scenario files key hosts: "(1, 0)".
func (a Address) String() string {
	return fmt.Sprintf("(%d, %d)", a.Subnet, a.Host)
}

// MarshalText lets addresses act as JSON map keys.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses the form produced by MarshalText.
func (a *Address) UnmarshalText(b []byte) error {
	parsed, err := ParseAddress(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Less orders addresses by subnet, then host.
func (a Address) Less(b Address) bool {
	if a.Subnet != b.Subnet {
		return a.Subnet < b.Subnet
	}
	return a.Host < b.Host
}

// ParseAddress accepts "(s, h)", "s,h" or "s h".
func ParseAddress(s string) (Address, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "(")
	trimmed = strings.TrimSuffix(trimmed, ")")
	parts := strings.FieldsFunc(trimmed, func(r rune) bool { return r == ',' || r == ' ' })
	if len(parts) != 2 {
		return Address{}, fmt.Errorf("malformed address %q", s)
	}
	subnet, err := strconv.Atoi(parts[0])
	if err != nil {
		return Address{}, fmt.Errorf("malformed address %q: %w", s, err)
	}
	host, err := strconv.Atoi(parts[1])
	if err != nil {
		return Address{}, fmt.Errorf("malformed address %q: %w", s, err)
	}
	return Address{Subnet: subnet, Host: host}, nil
}

// AccessLevel is the attacker's privilege on a host.
type AccessLevel int

const (
	NoAccess AccessLevel = iota
	UserAccess
	RootAccess
)

func (l AccessLevel) String() string {
	switch l {
	case UserAccess:
		return "user"
	case RootAccess:
		return "root"
	default:
		return "none"
	}
}

// ParseAccessLevel maps "none", "user" and "root" (any case) to a level.
func ParseAccessLevel(s string) (AccessLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return NoAccess, nil
	case "user":
		return UserAccess, nil
	case "root":
		return RootAccess, nil
	}
	return NoAccess, fmt.Errorf("unknown access level %q", s)
}
