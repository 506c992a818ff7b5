// Package security defines the capability model for the plugin system.
//
// Capabilities are permissions a plugin requests through its manifest.
// The sandbox in internal/plugin/lua enforces the filesystem and unsafe
// capabilities by gating which Lua libraries a plugin may require; the
// remaining capabilities are declarative and surfaced to the user (the
// extensions panel shows them with their risk level).
package security

import (
	"fmt"
	"sort"
)

// Capability represents a permission that a plugin can request.
type Capability string

// Capabilities plugins can request.
const (
	// CapabilityFileRead allows reading files from the filesystem.
	CapabilityFileRead Capability = "filesystem.read"

	// CapabilityFileWrite allows writing files to the filesystem.
	CapabilityFileWrite Capability = "filesystem.write"

	// CapabilityNetwork allows network access.
	CapabilityNetwork Capability = "network"

	// CapabilityUI allows notifications and status-bar messages.
	CapabilityUI Capability = "ui"

	// CapabilityPanels allows registering activities and sidebar panels.
	CapabilityPanels Capability = "workbench.panels"

	// CapabilityTabs allows opening and closing editor tabs.
	CapabilityTabs Capability = "workbench.tabs"

	// CapabilityCommands allows registering and executing commands.
	CapabilityCommands Capability = "workbench.commands"

	// CapabilityUnsafe grants full Lua stdlib access (io, os, debug).
	// This should be granted sparingly.
	CapabilityUnsafe Capability = "unsafe"
)

// Info provides metadata about a capability.
type Info struct {
	// Name is the capability identifier.
	Name Capability

	// DisplayName is a human-readable name.
	DisplayName string

	// Description explains what the capability allows.
	Description string

	// RiskLevel indicates how dangerous this capability is.
	RiskLevel RiskLevel

	// RequiresUserApproval indicates if the user must explicitly approve.
	RequiresUserApproval bool
}

// RiskLevel indicates the security risk of a capability.
type RiskLevel int

const (
	// RiskLow indicates minimal security risk.
	RiskLow RiskLevel = iota

	// RiskMedium indicates moderate security risk.
	RiskMedium

	// RiskHigh indicates significant security risk.
	RiskHigh

	// RiskCritical indicates maximum security risk.
	RiskCritical
)

// String returns a string representation of the risk level.
func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// capabilityRegistry holds metadata about all known capabilities.
var capabilityRegistry = map[Capability]Info{
	CapabilityFileRead: {
		Name:                 CapabilityFileRead,
		DisplayName:          "File Read",
		Description:          "Read files from the filesystem",
		RiskLevel:            RiskMedium,
		RequiresUserApproval: false,
	},
	CapabilityFileWrite: {
		Name:                 CapabilityFileWrite,
		DisplayName:          "File Write",
		Description:          "Write files to the filesystem",
		RiskLevel:            RiskHigh,
		RequiresUserApproval: true,
	},
	CapabilityNetwork: {
		Name:                 CapabilityNetwork,
		DisplayName:          "Network Access",
		Description:          "Make network requests",
		RiskLevel:            RiskHigh,
		RequiresUserApproval: true,
	},
	CapabilityUI: {
		Name:                 CapabilityUI,
		DisplayName:          "UI Access",
		Description:          "Show notifications and status messages",
		RiskLevel:            RiskLow,
		RequiresUserApproval: false,
	},
	CapabilityPanels: {
		Name:                 CapabilityPanels,
		DisplayName:          "Panel Access",
		Description:          "Register activities and sidebar panels",
		RiskLevel:            RiskLow,
		RequiresUserApproval: false,
	},
	CapabilityTabs: {
		Name:                 CapabilityTabs,
		DisplayName:          "Tab Access",
		Description:          "Open and close editor tabs",
		RiskLevel:            RiskLow,
		RequiresUserApproval: false,
	},
	CapabilityCommands: {
		Name:                 CapabilityCommands,
		DisplayName:          "Command Access",
		Description:          "Register and execute commands",
		RiskLevel:            RiskLow,
		RequiresUserApproval: false,
	},
	CapabilityUnsafe: {
		Name:                 CapabilityUnsafe,
		DisplayName:          "Unsafe Mode",
		Description:          "Full Lua stdlib access (dangerous)",
		RiskLevel:            RiskCritical,
		RequiresUserApproval: true,
	},
}

// GetCapabilityInfo returns information about a capability.
func GetCapabilityInfo(cap Capability) (Info, bool) {
	info, ok := capabilityRegistry[cap]
	return info, ok
}

// IsValidCapability returns true if the capability is known.
func IsValidCapability(cap Capability) bool {
	_, ok := capabilityRegistry[cap]
	return ok
}

// AllCapabilities returns all known capabilities, sorted by name.
func AllCapabilities() []Capability {
	caps := make([]Capability, 0, len(capabilityRegistry))
	for cap := range capabilityRegistry {
		caps = append(caps, cap)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return caps
}

// HighRiskCapabilities returns capabilities that require user approval,
// sorted by name.
func HighRiskCapabilities() []Capability {
	var caps []Capability
	for cap, info := range capabilityRegistry {
		if info.RequiresUserApproval {
			caps = append(caps, cap)
		}
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return caps
}

// CapabilityError represents a capability-related error.
type CapabilityError struct {
	Capability Capability
	Operation  string
	Message    string
}

// Error implements the error interface.
func (e *CapabilityError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("capability %q required for %s: %s", e.Capability, e.Operation, e.Message)
	}
	return fmt.Sprintf("capability %q: %s", e.Capability, e.Message)
}

// NewCapabilityError creates a new capability error.
func NewCapabilityError(cap Capability, operation, message string) *CapabilityError {
	return &CapabilityError{
		Capability: cap,
		Operation:  operation,
		Message:    message,
	}
}
