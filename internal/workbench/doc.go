// Package workbench implements the shell chrome of Polyglot: the activity
// bar, the sidebar panel stack, and the tab strip.
//
// ActivityManager maps activity ids to lazily-constructed panels and
// enforces the single-active-panel invariant through one transition
// function: toggling the active activity deactivates it, toggling another
// hides the current panel before showing the new one. SidebarManager owns
// the panel registry and sidebar geometry; TabManager owns the ordered tab
// list and the active tab.
//
// All three managers are owned by the UI goroutine. The view interfaces
// (ActivityView, SidebarView, TabView) are optional collaborators
// implemented by the terminal shell; managers run headless without them,
// which is how the tests exercise transitions.
package workbench
