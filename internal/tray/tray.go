package tray

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
)

// Callbacks for tray menu actions
type Callbacks struct {
	OnOpen       func()
	OnRefresh    func()
	OnDisconnect func()
	OnQuit       func()
}

// Setup initializes the system tray using Fyne's built-in support.
// It reports false when the driver has no tray (non-desktop builds).
func Setup(app fyne.App, callbacks Callbacks) bool {
	desk, ok := app.(desktop.App)
	if !ok {
		return false
	}

	item := func(label string, fn func()) *fyne.MenuItem {
		return fyne.NewMenuItem(label, func() {
			if fn != nil {
				fn()
			}
		})
	}

	menu := fyne.NewMenu("LeslieLEDs",
		item("Open Controller", callbacks.OnOpen),
		fyne.NewMenuItemSeparator(),
		item("Refresh Ports", callbacks.OnRefresh),
		item("Disconnect", callbacks.OnDisconnect),
		fyne.NewMenuItemSeparator(),
		item("Quit", callbacks.OnQuit),
	)

	desk.SetSystemTrayMenu(menu)
	desk.SetSystemTrayIcon(theme.MediaMusicIcon())
	return true
}
