package app

import (
	"github.com/dshills/polyglot/internal/plugin/api"
	"github.com/dshills/polyglot/internal/workbench"
)

var (
	_ api.WorkbenchProvider = (*workbenchProvider)(nil)
	_ api.UIProvider        = (*uiProvider)(nil)
)

// workbenchProvider adapts the activity-bar and sidebar managers to the
// plugin API surface.
type workbenchProvider struct {
	activities *workbench.ActivityManager
	sidebar    *workbench.SidebarManager
}

func (p *workbenchProvider) RegisterActivity(cfg workbench.ActivityConfig, factory workbench.PanelFactory) error {
	return p.activities.Register(cfg, factory)
}

func (p *workbenchProvider) UnregisterActivity(id string) error {
	return p.activities.Unregister(id)
}

func (p *workbenchProvider) AddSidebarPanel(panel workbench.Panel) error {
	return p.sidebar.AddPanel(panel)
}

func (p *workbenchProvider) RemoveSidebarPanel(id string) error {
	return p.sidebar.RemovePanel(id)
}

func (p *workbenchProvider) ShowSidebarPanel(id string) error {
	return p.sidebar.ShowPanel(id)
}

// uiProvider surfaces plugin messages on the status line. Plugin code runs
// on the main loop goroutine, so it may touch the view directly. Headless
// runs keep the log trail and drop the drawing.
type uiProvider struct {
	app *Application
}

func (p *uiProvider) Notify(message string, level api.NotificationLevel) error {
	p.app.notify(message, string(level))
	return nil
}

func (p *uiProvider) SetStatus(message string) error {
	if p.app.view != nil {
		p.app.view.SetStatus(message)
	}
	return nil
}
