package mex

import "fmt"

// Side identifies which half of the client/server pair an export run
// targets. SideMerged means both halves in one run.
type Side int

const (
	SideClient Side = iota
	SideServer
	SideMerged
)

// String returns the side name as used in file names and the state file.
func (s Side) String() string {
	switch s {
	case SideClient:
		return "client"
	case SideServer:
		return "server"
	case SideMerged:
		return "merged"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// ParseSide parses a side name. The empty string parses as SideMerged.
func ParseSide(name string) (Side, error) {
	switch name {
	case "client":
		return SideClient, nil
	case "server":
		return SideServer, nil
	case "merged", "":
		return SideMerged, nil
	default:
		return 0, fmt.Errorf("unknown side: %q", name)
	}
}

// Expand returns the concrete sides this side stands for. SideMerged
// expands to client and server; everything else expands to itself.
// Per-side work (packaging, backup source selection) always operates
// on the expanded set.
func (s Side) Expand() []Side {
	if s == SideMerged {
		return []Side{SideClient, SideServer}
	}
	return []Side{s}
}
