package types

import (
	"fmt"
	"time"
)

// Server represents a capacity-bounded host that domains are assigned to
type Server struct {
	ID             string
	Name           string // Unique
	IP             string
	Status         ServerStatus
	CapacityMode   CapacityMode
	MaxDomains     int // Derived from CapacityMode at creation
	CurrentDomains int // Live assignment count; never exceeds MaxDomains
	GroupID        string
	Config         string // Per-server config text
	Description    string
	LockedBy       string
	LockedAt       time.Time
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ServerStatus represents the occupancy state of a server
type ServerStatus string

const (
	ServerStatusFree  ServerStatus = "free"
	ServerStatusInUse ServerStatus = "in_use"
)

// StatusFor returns the server status implied by a domain count.
// A server is in_use as soon as it holds a single domain.
func StatusFor(currentDomains int) ServerStatus {
	if currentDomains >= 1 {
		return ServerStatusInUse
	}
	return ServerStatusFree
}

// CapacityMode is a named tier mapping to a fixed domain limit per server
type CapacityMode string

const (
	CapacityMode1x5  CapacityMode = "1:5"
	CapacityMode1x7  CapacityMode = "1:7"
	CapacityMode1x10 CapacityMode = "1:10"
)

// MaxDomains returns the domain limit for the mode, or 0 for an unknown mode.
func (m CapacityMode) MaxDomains() int {
	switch m {
	case CapacityMode1x5:
		return 5
	case CapacityMode1x7:
		return 7
	case CapacityMode1x10:
		return 10
	}
	return 0
}

// ParseCapacityMode validates a capacity mode string
func ParseCapacityMode(s string) (CapacityMode, error) {
	switch CapacityMode(s) {
	case CapacityMode1x5, CapacityMode1x7, CapacityMode1x10:
		return CapacityMode(s), nil
	}
	return "", fmt.Errorf("unknown capacity mode: %q", s)
}

// Domain represents an assignable unit of work (a hosted domain name)
type Domain struct {
	ID          string
	Name        string // Unique
	Status      DomainStatus
	Tags        []string // Ordered
	Description string
	LockedBy    string
	LockedAt    time.Time
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DomainStatus represents the assignment state of a domain
type DomainStatus string

const (
	DomainStatusFree     DomainStatus = "free"
	DomainStatusAssigned DomainStatus = "assigned"
)

// Assignment binds exactly one domain to exactly one server.
// The live set forms a partial injective mapping domain -> server:
// at most one assignment per domain, many per server up to its capacity.
type Assignment struct {
	ID         string
	DomainID   string
	ServerID   string
	AssignedAt time.Time
	AssignedBy string
}

// ServerGroup is an organizational grouping of servers.
// Aggregate figures are derived from member servers at read time,
// never stored; see registry.Summary.
type ServerGroup struct {
	ID          string
	Name        string // Unique
	Color       string
	Description string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
