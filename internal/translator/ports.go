package translator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errMountSegments = errors.New("expected name:path or name:path:ro")

func errInvalidMountFlag(flag string) error {
	return fmt.Errorf("unknown mount flag %q, only ro is supported", flag)
}

// ParsePortMapping splits a "host:container[/proto]" mapping. A bare
// "port" maps the same port on both sides. Protocol defaults to TCP.
func ParsePortMapping(s string) (host, container int, proto string, err error) {
	proto = "TCP"
	if idx := strings.LastIndex(s, "/"); idx >= 0 {
		proto = strings.ToUpper(s[idx+1:])
		s = s[:idx]
		if proto != "TCP" && proto != "UDP" && proto != "SCTP" {
			return 0, 0, "", fmt.Errorf("unknown protocol %q", proto)
		}
	}
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		container, err = strconv.Atoi(parts[0])
		host = container
	case 2:
		host, err = strconv.Atoi(parts[0])
		if err == nil {
			container, err = strconv.Atoi(parts[1])
		}
	default:
		return 0, 0, "", fmt.Errorf("expected host:container")
	}
	if err != nil {
		return 0, 0, "", fmt.Errorf("ports must be numeric: %w", err)
	}
	if host <= 0 || host > 65535 || container <= 0 || container > 65535 {
		return 0, 0, "", fmt.Errorf("port out of range")
	}
	return host, container, proto, nil
}
