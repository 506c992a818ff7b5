// Package shell provides the terminal surface of the workbench: a backend
// abstraction over the screen and a thin view that renders the activity
// bar, sidebar, tab strip and status line.
package shell

import (
	"strings"
	"sync"
)

// EventType identifies a terminal event.
type EventType int

const (
	EventNone EventType = iota
	EventKey
	EventMouse
	EventResize
	EventPaste
)

// Event is one terminal event.
type Event struct {
	Type EventType

	// Key event fields.
	Key  Key
	Rune rune
	Mod  ModMask

	// Mouse event fields.
	MouseX, MouseY int
	MouseButton    MouseButton

	// Resize event fields.
	Width, Height int

	// Paste event fields.
	PasteText string
}

// Key is a keyboard key.
type Key int

// Special keys. Printable input arrives as KeyRune with the Rune field set.
const (
	KeyNone Key = iota
	KeyRune
	KeyEscape
	KeyEnter
	KeyTab
	KeyBacktab
	KeyBackspace
	KeyDelete
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyF1
	KeyF2
	KeyCtrlB
	KeyCtrlE
	KeyCtrlF
	KeyCtrlN
	KeyCtrlP
	KeyCtrlQ
	KeyCtrlS
	KeyCtrlW
	KeyCtrlX
)

// ModMask is the modifier key state.
type ModMask int

const (
	ModNone  ModMask = 0
	ModShift ModMask = 1 << iota
	ModCtrl
	ModAlt
)

// Has reports whether the mask contains mod.
func (m ModMask) Has(mod ModMask) bool {
	return m&mod != 0
}

// MouseButton is the mouse button state.
type MouseButton int

const (
	MouseNone MouseButton = iota
	MouseLeft
	MouseMiddle
	MouseRight
	MouseWheelUp
	MouseWheelDown
)

// Style describes how a cell is drawn. Colors are hex strings from the
// theme; empty means the terminal default.
type Style struct {
	Fg        string
	Bg        string
	Bold      bool
	Underline bool
	Reverse   bool
}

// Backend is the display surface the view draws on.
type Backend interface {
	// Init prepares the backend. Must be called before any other method.
	Init() error

	// Fini releases the backend and restores the terminal.
	Fini()

	// Size returns the surface dimensions in cells.
	Size() (width, height int)

	// SetCell draws one cell. Out-of-bounds positions are ignored.
	SetCell(x, y int, r rune, style Style)

	// Fill draws r with style over a rectangle.
	Fill(x, y, w, h int, r rune, style Style)

	// Clear erases the surface.
	Clear()

	// Show flushes buffered drawing to the display.
	Show()

	// ShowCursor places and shows the cursor.
	ShowCursor(x, y int)

	// HideCursor hides the cursor.
	HideCursor()

	// PollEvent blocks for the next terminal event. After Fini it
	// returns an EventNone event so readers can stop.
	PollEvent() Event

	// PostEvent queues a synthetic event.
	PostEvent(ev Event)

	// HasTrueColor reports 24-bit color support.
	HasTrueColor() bool

	// Beep rings the terminal bell.
	Beep()
}

// NullBackend is an in-memory backend for tests.
type NullBackend struct {
	width, height int
	runes         [][]rune
	styles        [][]Style
	cursorX       int
	cursorY       int
	cursorShown   bool
	events        chan Event
	quit          chan struct{}
	finiOnce      sync.Once
}

// NewNullBackend creates a null backend with fixed dimensions.
func NewNullBackend(width, height int) *NullBackend {
	b := &NullBackend{
		width:  width,
		height: height,
		events: make(chan Event, 64),
		quit:   make(chan struct{}),
	}
	b.alloc()
	return b
}

func (b *NullBackend) alloc() {
	b.runes = make([][]rune, b.height)
	b.styles = make([][]Style, b.height)
	for y := range b.runes {
		b.runes[y] = make([]rune, b.width)
		b.styles[y] = make([]Style, b.width)
		for x := range b.runes[y] {
			b.runes[y][x] = ' '
		}
	}
}

// Init implements Backend.
func (b *NullBackend) Init() error {
	b.alloc()
	return nil
}

// Fini implements Backend. It unblocks any pending PollEvent.
func (b *NullBackend) Fini() {
	b.finiOnce.Do(func() { close(b.quit) })
}

// Size implements Backend.
func (b *NullBackend) Size() (int, int) {
	return b.width, b.height
}

// SetCell implements Backend.
func (b *NullBackend) SetCell(x, y int, r rune, style Style) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return
	}
	b.runes[y][x] = r
	b.styles[y][x] = style
}

// Fill implements Backend.
func (b *NullBackend) Fill(x, y, w, h int, r rune, style Style) {
	for row := y; row < y+h; row++ {
		for col := x; col < x+w; col++ {
			b.SetCell(col, row, r, style)
		}
	}
}

// Clear implements Backend.
func (b *NullBackend) Clear() {
	b.Fill(0, 0, b.width, b.height, ' ', Style{})
}

// Show implements Backend.
func (b *NullBackend) Show() {}

// ShowCursor implements Backend.
func (b *NullBackend) ShowCursor(x, y int) {
	b.cursorX, b.cursorY = x, y
	b.cursorShown = true
}

// HideCursor implements Backend.
func (b *NullBackend) HideCursor() {
	b.cursorShown = false
}

// PollEvent implements Backend.
func (b *NullBackend) PollEvent() Event {
	select {
	case ev := <-b.events:
		return ev
	case <-b.quit:
		return Event{Type: EventNone}
	}
}

// PostEvent implements Backend. Events are dropped when the queue is full
// so tests never block.
func (b *NullBackend) PostEvent(ev Event) {
	select {
	case b.events <- ev:
	default:
	}
}

// HasTrueColor implements Backend.
func (b *NullBackend) HasTrueColor() bool { return true }

// Beep implements Backend.
func (b *NullBackend) Beep() {}

// Row returns one rendered row as a string, for assertions.
func (b *NullBackend) Row(y int) string {
	if y < 0 || y >= b.height {
		return ""
	}
	return string(b.runes[y])
}

// Screen returns the whole surface as newline-joined rows.
func (b *NullBackend) Screen() string {
	rows := make([]string, b.height)
	for y := range rows {
		rows[y] = b.Row(y)
	}
	return strings.Join(rows, "\n")
}

// StyleAt returns the style of one cell, for assertions.
func (b *NullBackend) StyleAt(x, y int) Style {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return Style{}
	}
	return b.styles[y][x]
}

// CursorPosition reports the cursor state, for assertions.
func (b *NullBackend) CursorPosition() (x, y int, shown bool) {
	return b.cursorX, b.cursorY, b.cursorShown
}

// Resize changes the surface dimensions and queues a resize event.
func (b *NullBackend) Resize(width, height int) {
	b.width, b.height = width, height
	b.alloc()
	b.PostEvent(Event{Type: EventResize, Width: width, Height: height})
}
