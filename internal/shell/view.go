package shell

import (
	"sort"

	"github.com/rivo/uniseg"

	"github.com/dshills/polyglot/internal/logging"
	"github.com/dshills/polyglot/internal/theme"
	"github.com/dshills/polyglot/internal/workbench"
)

// activityBarWidth is the fixed width of the activity-bar column.
const activityBarWidth = 3

// View renders the workbench chrome: tab strip on top, activity bar on the
// left, the sidebar panel beside it, the main area, and a status line. It
// implements the workbench view interfaces and keeps its own copy of what
// the managers push through them.
//
// The view is owned by the UI goroutine, like the panels it draws, and
// needs no internal locking.
type View struct {
	backend Backend
	themes  *theme.Manager
	logger  *logging.Logger

	width  int
	height int

	buttons  []workbench.ActivityConfig
	active   string
	barShown bool

	panel        workbench.Panel
	sidebarWidth int
	sidebarShown bool

	tabs      []workbench.Tab
	activeTab string

	status      string
	notice      string
	noticeLevel string
}

// NewView creates a view on a backend. The theme manager supplies colors;
// nil falls back to the built-in dark theme.
func NewView(backend Backend, themes *theme.Manager, logger *logging.Logger) *View {
	if logger == nil {
		logger = logging.Null
	}
	w, h := backend.Size()
	return &View{
		backend:      backend,
		themes:       themes,
		logger:       logger.WithComponent("shell"),
		width:        w,
		height:       h,
		barShown:     true,
		sidebarWidth: 30,
		sidebarShown: false,
	}
}

// SetActivityBarVisible shows or hides the activity-bar column.
func (v *View) SetActivityBarVisible(visible bool) {
	v.barShown = visible
}

// ActivityBarVisible reports whether the activity bar is drawn.
func (v *View) ActivityBarVisible() bool {
	return v.barShown
}

// Resize adjusts the layout to new surface dimensions.
func (v *View) Resize(width, height int) {
	v.width = width
	v.height = height
}

// AddButton records an activity-bar button, replacing any previous button
// with the same id.
func (v *View) AddButton(cfg workbench.ActivityConfig) {
	for i := range v.buttons {
		if v.buttons[i].ID == cfg.ID {
			v.buttons[i] = cfg
			return
		}
	}
	v.buttons = append(v.buttons, cfg)
}

// RemoveButton drops an activity-bar button.
func (v *View) RemoveButton(id string) {
	for i := range v.buttons {
		if v.buttons[i].ID == id {
			v.buttons = append(v.buttons[:i], v.buttons[i+1:]...)
			return
		}
	}
}

// SetActiveActivity highlights one activity-bar button.
func (v *View) SetActiveActivity(id string) {
	v.active = id
}

// SetBadge updates a button's badge count.
func (v *View) SetBadge(id string, count int) {
	for i := range v.buttons {
		if v.buttons[i].ID == id {
			v.buttons[i].BadgeCount = count
			return
		}
	}
}

// ShowPanel sets the sidebar content.
func (v *View) ShowPanel(p workbench.Panel) {
	v.panel = p
}

// Clear removes the sidebar content.
func (v *View) Clear() {
	v.panel = nil
}

// SetWidth sets the sidebar width in cells.
func (v *View) SetWidth(width int) {
	v.sidebarWidth = width
}

// SetVisible toggles the sidebar.
func (v *View) SetVisible(visible bool) {
	v.sidebarShown = visible
}

// AddTab appends a tab to the strip.
func (v *View) AddTab(t workbench.Tab) {
	v.tabs = append(v.tabs, t)
}

// RemoveTab drops a tab from the strip.
func (v *View) RemoveTab(id string) {
	for i := range v.tabs {
		if v.tabs[i].ID == id {
			v.tabs = append(v.tabs[:i], v.tabs[i+1:]...)
			break
		}
	}
	if v.activeTab == id {
		v.activeTab = ""
	}
}

// SetActiveTab highlights one tab.
func (v *View) SetActiveTab(id string) {
	v.activeTab = id
}

// UpdateTab refreshes a tab's title, path and modified marker.
func (v *View) UpdateTab(t workbench.Tab) {
	for i := range v.tabs {
		if v.tabs[i].ID == t.ID {
			v.tabs[i] = t
			return
		}
	}
}

// ActivityBar returns the facet the activity manager renders through.
// Facets exist because ActivityView and TabView both declare SetActive
// with different meanings.
func (v *View) ActivityBar() workbench.ActivityView { return activityFacet{v} }

// Sidebar returns the facet the sidebar manager renders through.
func (v *View) Sidebar() workbench.SidebarView { return sidebarFacet{v} }

// TabStrip returns the facet the tab manager renders through.
func (v *View) TabStrip() workbench.TabView { return tabFacet{v} }

type activityFacet struct{ v *View }

func (f activityFacet) AddButton(cfg workbench.ActivityConfig) { f.v.AddButton(cfg) }
func (f activityFacet) RemoveButton(id string)                 { f.v.RemoveButton(id) }
func (f activityFacet) SetActive(id string)                    { f.v.SetActiveActivity(id) }
func (f activityFacet) SetBadge(id string, count int)          { f.v.SetBadge(id, count) }

type sidebarFacet struct{ v *View }

func (f sidebarFacet) ShowPanel(p workbench.Panel) { f.v.ShowPanel(p) }
func (f sidebarFacet) Clear()                      { f.v.Clear() }
func (f sidebarFacet) SetWidth(width int)          { f.v.SetWidth(width) }
func (f sidebarFacet) SetVisible(visible bool)     { f.v.SetVisible(visible) }

type tabFacet struct{ v *View }

func (f tabFacet) AddTab(t workbench.Tab)    { f.v.AddTab(t) }
func (f tabFacet) RemoveTab(id string)       { f.v.RemoveTab(id) }
func (f tabFacet) SetActive(id string)       { f.v.SetActiveTab(id) }
func (f tabFacet) UpdateTab(t workbench.Tab) { f.v.UpdateTab(t) }

// SetStatus sets the left side of the status line.
func (v *View) SetStatus(msg string) {
	v.status = msg
}

// Notify shows a transient message on the right side of the status line.
func (v *View) Notify(message, level string) {
	v.notice = message
	v.noticeLevel = level
}

// ClearNotice removes the transient message.
func (v *View) ClearNotice() {
	v.notice = ""
	v.noticeLevel = ""
}

func (v *View) currentTheme() *theme.Theme {
	if v.themes != nil {
		if t := v.themes.Current(); t != nil {
			return t
		}
	}
	return theme.PolyglotDark()
}

// Render draws the full workbench chrome and flushes it.
func (v *View) Render() {
	t := v.currentTheme()
	v.backend.Clear()

	bg := t.ColorOr("background", "")
	fg := t.ColorOr("foreground", "")
	v.backend.Fill(0, 0, v.width, v.height, ' ', Style{Fg: fg, Bg: bg})

	v.drawTabs(t)
	v.drawActivityBar(t)
	bodyX := v.drawSidebar(t)
	v.drawMain(t, bodyX)
	v.drawStatus(t)
	v.backend.Show()
}

func (v *View) drawTabs(t *theme.Theme) {
	activeStyle := Style{
		Fg:   t.ColorOr("foreground", ""),
		Bg:   t.ColorOr("tab_active_background", ""),
		Bold: true,
	}
	idleStyle := Style{
		Fg: t.ColorOr("foreground", ""),
		Bg: t.ColorOr("tab_inactive_background", ""),
	}
	v.backend.Fill(0, 0, v.width, 1, ' ', idleStyle)

	x := 0
	for _, tab := range v.tabs {
		label := " " + tab.Title
		if tab.Modified {
			label += " ●"
		}
		label += " "

		style := idleStyle
		if tab.ID == v.activeTab {
			style = activeStyle
		}
		x += v.drawText(x, 0, v.width-x, label, style)
		if x >= v.width {
			break
		}
	}
}

func (v *View) drawActivityBar(t *theme.Theme) {
	if !v.barShown {
		return
	}
	barStyle := Style{
		Fg: t.ColorOr("foreground", ""),
		Bg: t.ColorOr("activity_bar_background", ""),
	}
	activeStyle := Style{
		Fg:      t.ColorOr("accent", ""),
		Bg:      t.ColorOr("activity_bar_background", ""),
		Reverse: true,
	}
	v.backend.Fill(0, 1, activityBarWidth, v.bodyHeight(), ' ', barStyle)

	main, bottom := v.splitButtons()
	y := 1
	for _, cfg := range main {
		v.drawButton(cfg, y, barStyle, activeStyle, t)
		y++
	}
	y = v.height - 2
	for i := len(bottom) - 1; i >= 0; i-- {
		v.drawButton(bottom[i], y, barStyle, activeStyle, t)
		y--
	}
}

// splitButtons orders buttons by position within their area.
func (v *View) splitButtons() (main, bottom []workbench.ActivityConfig) {
	for _, cfg := range v.buttons {
		if cfg.Area == workbench.AreaBottom {
			bottom = append(bottom, cfg)
		} else {
			main = append(main, cfg)
		}
	}
	sort.SliceStable(main, func(i, j int) bool { return main[i].Position < main[j].Position })
	sort.SliceStable(bottom, func(i, j int) bool { return bottom[i].Position < bottom[j].Position })
	return main, bottom
}

func (v *View) drawButton(cfg workbench.ActivityConfig, y int, idle, active Style, t *theme.Theme) {
	style := idle
	if cfg.ID == v.active {
		style = active
	}
	if !cfg.Enabled {
		style.Fg = t.ColorOr("border", style.Fg)
	}

	v.backend.SetCell(0, y, ' ', style)
	v.backend.SetCell(1, y, buttonRune(cfg), style)
	if cfg.BadgeCount > 0 {
		badge := Style{Fg: t.ColorOr("accent", ""), Bg: style.Bg, Bold: true}
		v.backend.SetCell(2, y, '•', badge)
	} else {
		v.backend.SetCell(2, y, ' ', style)
	}
}

// buttonRune picks the glyph for an activity button: the configured icon's
// first rune, or the first rune of the id.
func buttonRune(cfg workbench.ActivityConfig) rune {
	for _, r := range cfg.Icon {
		return r
	}
	for _, r := range cfg.ID {
		return r
	}
	return '?'
}

// barWidth is the x offset consumed by the activity bar.
func (v *View) barWidth() int {
	if !v.barShown {
		return 0
	}
	return activityBarWidth
}

// drawSidebar renders the active panel and returns the x where the main
// area starts.
func (v *View) drawSidebar(t *theme.Theme) int {
	if !v.sidebarShown || v.panel == nil {
		return v.barWidth()
	}

	x0 := v.barWidth()
	w := v.sidebarWidth
	if x0+w > v.width {
		w = v.width - x0
	}
	if w < 4 {
		return v.barWidth()
	}

	style := Style{
		Fg: t.ColorOr("foreground", ""),
		Bg: t.ColorOr("sidebar_background", ""),
	}
	titleStyle := style
	titleStyle.Bold = true
	borderStyle := Style{
		Fg: t.ColorOr("border", ""),
		Bg: t.ColorOr("background", ""),
	}

	v.backend.Fill(x0, 1, w, v.bodyHeight(), ' ', style)
	v.drawText(x0+1, 1, w-2, v.panel.Title(), titleStyle)

	inner := w - 2
	lines := v.panel.Lines(inner)
	y := 2
	for _, line := range lines {
		if y > v.height-2 {
			break
		}
		v.drawText(x0+1, y, inner, line, style)
		y++
	}

	// Border column between sidebar and main area.
	for row := 1; row <= v.height-2; row++ {
		v.backend.SetCell(x0+w, row, '│', borderStyle)
	}
	return x0 + w + 1
}

func (v *View) drawMain(t *theme.Theme, x0 int) {
	style := Style{
		Fg: t.ColorOr("foreground", ""),
		Bg: t.ColorOr("background", ""),
	}
	w := v.width - x0
	if w <= 0 {
		return
	}

	for _, tab := range v.tabs {
		if tab.ID != v.activeTab {
			continue
		}
		v.drawText(x0+1, 2, w-2, tab.Title, Style{Fg: style.Fg, Bg: style.Bg, Bold: true})
		if tab.Path != "" {
			dim := Style{Fg: t.ColorOr("border", style.Fg), Bg: style.Bg}
			v.drawText(x0+1, 3, w-2, tab.Path, dim)
		}
		return
	}

	dim := Style{Fg: t.ColorOr("border", style.Fg), Bg: style.Bg}
	v.drawText(x0+1, 2, w-2, "no open tabs", dim)
}

func (v *View) drawStatus(t *theme.Theme) {
	y := v.height - 1
	style := Style{
		Fg: t.ColorOr("foreground", ""),
		Bg: t.ColorOr("status_background", ""),
	}
	v.backend.Fill(0, y, v.width, 1, ' ', style)
	v.drawText(1, y, v.width-2, v.status, style)

	if v.notice == "" {
		return
	}
	noticeStyle := style
	switch v.noticeLevel {
	case "error":
		noticeStyle.Fg = t.ColorOr("error", style.Fg)
		noticeStyle.Bold = true
	case "warning":
		noticeStyle.Fg = t.ColorOr("warning", style.Fg)
	case "success":
		noticeStyle.Fg = t.ColorOr("accent", style.Fg)
	}
	nw := textWidth(v.notice)
	x := v.width - nw - 1
	if x < 1 {
		x = 1
	}
	v.drawText(x, y, v.width-x-1, v.notice, noticeStyle)
}

func (v *View) bodyHeight() int {
	h := v.height - 2
	if h < 0 {
		return 0
	}
	return h
}

// drawText writes s at (x, y) clipped to max cells and returns the cells
// consumed. Wide graphemes advance by their full width.
func (v *View) drawText(x, y, max int, s string, style Style) int {
	if max <= 0 {
		return 0
	}
	used := 0
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		w := gr.Width()
		if w == 0 {
			continue
		}
		if used+w > max {
			break
		}
		runes := gr.Runes()
		v.backend.SetCell(x+used, y, runes[0], style)
		used += w
	}
	return used
}

// textWidth returns the display width of s in cells.
func textWidth(s string) int {
	return uniseg.StringWidth(s)
}
