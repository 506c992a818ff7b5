package theme

import (
	"sync"

	"github.com/dshills/polyglot/internal/event"
	"github.com/dshills/polyglot/internal/logging"
)

// FontRole names a typography slot in the workbench.
type FontRole string

// Font roles.
const (
	RoleDefault   FontRole = "default"
	RoleUI        FontRole = "ui"
	RoleEditor    FontRole = "editor"
	RoleMonospace FontRole = "monospace"
)

// Font is a resolved family/size pair for one role.
type Font struct {
	Family string
	Size   float64
}

// Size bounds for resolved fonts.
const (
	MinFontSize = 6
	MaxFontSize = 72
)

// roleSpec scales the base size and may override the family.
type roleSpec struct {
	scale  float64
	family string
}

// TypographyManager resolves font roles against the base typography.
// Mutations notify the observer list, then emit "typography.changed".
type TypographyManager struct {
	mu        sync.RWMutex
	base      Typography
	roles     map[FontRole]roleSpec
	observers []func(Typography)

	bus    *event.Bus
	logger *logging.Logger
}

// NewTypographyManager creates a manager with the default base typography.
func NewTypographyManager(bus *event.Bus, logger *logging.Logger) *TypographyManager {
	if logger == nil {
		logger = logging.Null
	}
	return &TypographyManager{
		base: Typography{
			BaseFontFamily: "Sans",
			BaseFontSize:   13,
			ScaleFactor:    1.0,
		},
		roles: map[FontRole]roleSpec{
			RoleDefault:   {scale: 1.0},
			RoleUI:        {scale: 0.92},
			RoleEditor:    {scale: 1.0, family: "Monospace"},
			RoleMonospace: {scale: 1.0, family: "Monospace"},
		},
		bus:    bus,
		logger: logger.WithComponent("typography"),
	}
}

// Base returns the current base typography.
func (tm *TypographyManager) Base() Typography {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.base
}

// FontFor resolves a role to a concrete font. The size applies the global
// scale factor and the role scale, clamped to [MinFontSize, MaxFontSize].
// Unknown roles resolve as RoleDefault.
func (tm *TypographyManager) FontFor(role FontRole) Font {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	spec, ok := tm.roles[role]
	if !ok {
		spec = tm.roles[RoleDefault]
	}

	family := tm.base.BaseFontFamily
	if spec.family != "" {
		family = spec.family
	}

	size := tm.base.BaseFontSize * tm.base.ScaleFactor * spec.scale
	if size < MinFontSize {
		size = MinFontSize
	}
	if size > MaxFontSize {
		size = MaxFontSize
	}

	return Font{Family: family, Size: size}
}

// SetBaseFamily changes the base font family.
func (tm *TypographyManager) SetBaseFamily(family string) {
	if family == "" {
		return
	}
	tm.mu.Lock()
	tm.base.BaseFontFamily = family
	tm.mu.Unlock()
	tm.notify()
}

// SetBaseSize changes the base font size.
func (tm *TypographyManager) SetBaseSize(size float64) error {
	if size <= 0 {
		return ErrInvalidFontSize
	}
	tm.mu.Lock()
	tm.base.BaseFontSize = size
	tm.mu.Unlock()
	tm.notify()
	return nil
}

// SetScaleFactor changes the global scale, clamped to [0.5, 3.0].
func (tm *TypographyManager) SetScaleFactor(scale float64) {
	if scale < 0.5 {
		scale = 0.5
	}
	if scale > 3.0 {
		scale = 3.0
	}
	tm.mu.Lock()
	tm.base.ScaleFactor = scale
	tm.mu.Unlock()
	tm.notify()
}

// Apply overlays a theme's typography block. Zero fields are left alone so
// a theme may ship only a family or only a scale.
func (tm *TypographyManager) Apply(t Typography) {
	tm.mu.Lock()
	if t.BaseFontFamily != "" {
		tm.base.BaseFontFamily = t.BaseFontFamily
	}
	if t.BaseFontSize > 0 {
		tm.base.BaseFontSize = t.BaseFontSize
	}
	if t.ScaleFactor > 0 {
		tm.base.ScaleFactor = t.ScaleFactor
	}
	tm.mu.Unlock()
	tm.notify()
}

// Subscribe registers a typography observer and returns its unsubscribe
// function.
func (tm *TypographyManager) Subscribe(fn func(Typography)) func() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.observers = append(tm.observers, fn)
	idx := len(tm.observers) - 1

	return func() {
		tm.mu.Lock()
		defer tm.mu.Unlock()
		if idx < len(tm.observers) {
			tm.observers[idx] = nil
		}
	}
}

func (tm *TypographyManager) notify() {
	tm.mu.RLock()
	base := tm.base
	observers := make([]func(Typography), len(tm.observers))
	copy(observers, tm.observers)
	tm.mu.RUnlock()

	for _, fn := range observers {
		if fn != nil {
			fn(base)
		}
	}

	if tm.bus != nil {
		if err := tm.bus.Emit("typography.changed", "typography", map[string]any{
			"family": base.BaseFontFamily,
			"size":   base.BaseFontSize,
			"scale":  base.ScaleFactor,
		}); err != nil {
			tm.logger.Debug("emit typography.changed: %v", err)
		}
	}
}
