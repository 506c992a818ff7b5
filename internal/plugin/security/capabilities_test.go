package security

import (
	"errors"
	"strings"
	"testing"
)

func TestIsValidCapability(t *testing.T) {
	valid := []Capability{
		CapabilityFileRead,
		CapabilityFileWrite,
		CapabilityNetwork,
		CapabilityUI,
		CapabilityPanels,
		CapabilityTabs,
		CapabilityCommands,
		CapabilityUnsafe,
	}
	for _, cap := range valid {
		if !IsValidCapability(cap) {
			t.Errorf("IsValidCapability(%q) = false, want true", cap)
		}
	}

	invalid := []Capability{"", "shell", "filesystem", "Workbench.Panels", "filesystem.read.extra"}
	for _, cap := range invalid {
		if IsValidCapability(cap) {
			t.Errorf("IsValidCapability(%q) = true, want false", cap)
		}
	}
}

func TestAllCapabilitiesSorted(t *testing.T) {
	caps := AllCapabilities()
	if len(caps) != 8 {
		t.Fatalf("AllCapabilities() returned %d capabilities, want 8", len(caps))
	}
	for i := 1; i < len(caps); i++ {
		if caps[i-1] >= caps[i] {
			t.Errorf("AllCapabilities() not sorted: %q before %q", caps[i-1], caps[i])
		}
	}
}

func TestGetCapabilityInfo(t *testing.T) {
	info, ok := GetCapabilityInfo(CapabilityUnsafe)
	if !ok {
		t.Fatal("GetCapabilityInfo(unsafe) not found")
	}
	if info.RiskLevel != RiskCritical {
		t.Errorf("unsafe risk = %v, want critical", info.RiskLevel)
	}
	if !info.RequiresUserApproval {
		t.Error("unsafe should require user approval")
	}

	if _, ok := GetCapabilityInfo("bogus"); ok {
		t.Error("GetCapabilityInfo(bogus) found, want not found")
	}
}

func TestHighRiskCapabilities(t *testing.T) {
	high := HighRiskCapabilities()
	want := map[Capability]bool{
		CapabilityFileWrite: true,
		CapabilityNetwork:   true,
		CapabilityUnsafe:    true,
	}
	if len(high) != len(want) {
		t.Fatalf("HighRiskCapabilities() = %v, want %d entries", high, len(want))
	}
	for _, cap := range high {
		if !want[cap] {
			t.Errorf("unexpected high-risk capability %q", cap)
		}
	}
}

func TestRiskLevelString(t *testing.T) {
	tests := []struct {
		level RiskLevel
		want  string
	}{
		{RiskLow, "low"},
		{RiskMedium, "medium"},
		{RiskHigh, "high"},
		{RiskCritical, "critical"},
		{RiskLevel(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("RiskLevel(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestCapabilityError(t *testing.T) {
	err := NewCapabilityError(CapabilityFileWrite, "write file", "not granted")
	msg := err.Error()
	if !strings.Contains(msg, "filesystem.write") || !strings.Contains(msg, "write file") {
		t.Errorf("error message %q missing capability or operation", msg)
	}

	var capErr *CapabilityError
	var wrapped error = err
	if !errors.As(wrapped, &capErr) {
		t.Fatal("errors.As failed for *CapabilityError")
	}
	if capErr.Capability != CapabilityFileWrite {
		t.Errorf("Capability = %q, want %q", capErr.Capability, CapabilityFileWrite)
	}

	bare := NewCapabilityError(CapabilityUnsafe, "", "not granted")
	if !strings.Contains(bare.Error(), "unsafe") {
		t.Errorf("error message %q missing capability", bare.Error())
	}
}
