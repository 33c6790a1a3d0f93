package host

import (
	"fmt"
	"strings"
)

// HTTPServerProcess is the well-known process that fronts HTTP traffic
var HTTPServerProcess = ProcessID{Name: "http-server", Package: "distro", Publisher: "sys"}

// ProcessID names a process as name:package:publisher
type ProcessID struct {
	Name      string
	Package   string
	Publisher string
}

// ParseProcessID parses "name:package:publisher"
func ParseProcessID(s string) (ProcessID, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return ProcessID{}, fmt.Errorf("process id %q: expected name:package:publisher", s)
	}
	for _, part := range parts {
		if part == "" || strings.ContainsAny(part, "@ ") {
			return ProcessID{}, fmt.Errorf("process id %q: invalid segment %q", s, part)
		}
	}
	return ProcessID{Name: parts[0], Package: parts[1], Publisher: parts[2]}, nil
}

func (p ProcessID) String() string {
	return p.Name + ":" + p.Package + ":" + p.Publisher
}

// Address is a process on a specific node, written node@name:package:publisher
type Address struct {
	Node    string
	Process ProcessID
}

// ParseAddress parses "node@name:package:publisher"
func ParseAddress(s string) (Address, error) {
	node, process, found := strings.Cut(s, "@")
	if !found || node == "" {
		return Address{}, fmt.Errorf("address %q: expected node@name:package:publisher", s)
	}
	id, err := ParseProcessID(process)
	if err != nil {
		return Address{}, fmt.Errorf("address %q: %w", s, err)
	}
	return Address{Node: node, Process: id}, nil
}

func (a Address) String() string {
	return a.Node + "@" + a.Process.String()
}

// MarshalText allows addresses in config files and CBOR frames
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
