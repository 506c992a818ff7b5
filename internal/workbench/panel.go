package workbench

// Panel is one unit of sidebar content. Built-in activities (explorer,
// search) and plugins both provide panels; the sidebar displays at most one
// at a time.
//
// Panels are owned by the UI goroutine and need no internal locking.
type Panel interface {
	// ID returns the stable panel identifier.
	ID() string

	// Title returns the human-readable panel title.
	Title() string

	// Show marks the panel visible. The sidebar calls it before rendering.
	Show()

	// Hide marks the panel hidden.
	Hide()

	// Visible reports whether the panel is shown.
	Visible() bool

	// Lines renders the panel body as rows of text fitting width cells.
	Lines(width int) []string
}

// PanelFactory constructs an activity's panel on first activation.
type PanelFactory func() (Panel, error)

// BasePanel carries the Panel bookkeeping. Concrete panels embed it and
// provide Lines.
type BasePanel struct {
	id      string
	title   string
	visible bool
}

// NewBasePanel returns a hidden panel with the given identity.
func NewBasePanel(id, title string) BasePanel {
	return BasePanel{id: id, title: title}
}

// ID returns the panel identifier.
func (p *BasePanel) ID() string { return p.id }

// Title returns the panel title.
func (p *BasePanel) Title() string { return p.title }

// SetTitle replaces the panel title.
func (p *BasePanel) SetTitle(title string) { p.title = title }

// Show marks the panel visible.
func (p *BasePanel) Show() { p.visible = true }

// Hide marks the panel hidden.
func (p *BasePanel) Hide() { p.visible = false }

// Visible reports whether the panel is shown.
func (p *BasePanel) Visible() bool { return p.visible }

// Lines renders nothing; embedders override it.
func (p *BasePanel) Lines(width int) []string { return nil }
