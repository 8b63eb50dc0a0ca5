package window

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"github.com/PixPMusic/leslieleds-controller/internal/controls"
	"github.com/PixPMusic/leslieleds-controller/internal/midi"
	"github.com/PixPMusic/leslieleds-controller/internal/router"
)

// MainWindow manages the main application window. It reaches the core only
// through the Surface and the router's connect operations, and receives
// status and mirrored values as a router.Observer.
type MainWindow struct {
	window  fyne.Window
	app     fyne.App
	router  *router.Router
	surface *controls.Surface
	logger  logrus.FieldLogger

	// Connection section
	endpoints   []midi.EndpointDescriptor
	portSelect  *widget.Select
	statusLabel *widget.Label

	// Controls keyed by CC number, for mirroring
	sliders         map[int]*widget.Slider
	animationSelect *widget.Select
	mirrorSelect    *widget.Select
	directionSelect *widget.Select
	saveModeCheck   *widget.Check

	// mirroring is set while a received value is applied to a widget so
	// the widget's change handler does not send it again
	mirroring bool
}

// NewMainWindow creates the main application window
func NewMainWindow(app fyne.App, r *router.Router, logger logrus.FieldLogger) *MainWindow {
	win := app.NewWindow("LeslieLEDs Controller")

	mw := &MainWindow{
		window:  win,
		app:     app,
		router:  r,
		surface: controls.NewSurface(r),
		logger:  logger.WithField("component", "window"),
		sliders: make(map[int]*widget.Slider),
	}

	mw.setupUI()

	win.Resize(fyne.NewSize(500, 900))
	win.CenterOnScreen()

	win.SetCloseIntercept(func() {
		win.Hide()
	})

	return mw
}

// Show displays the window
func (mw *MainWindow) Show() {
	mw.window.Show()
	mw.window.RequestFocus()
}

func (mw *MainWindow) setupUI() {
	mw.portSelect = widget.NewSelect([]string{}, nil)
	mw.portSelect.PlaceHolder = "Select MIDI port..."

	refreshBtn := widget.NewButtonWithIcon("Refresh", theme.ViewRefreshIcon(), func() {
		mw.RefreshPorts()
	})
	connectBtn := widget.NewButtonWithIcon("Connect", theme.LoginIcon(), func() {
		mw.connectSelected()
	})
	connectBtn.Importance = widget.HighImportance
	disconnectBtn := widget.NewButtonWithIcon("", theme.CancelIcon(), func() {
		mw.router.Disconnect()
	})

	mw.statusLabel = widget.NewLabel(router.StatusDisconnected)
	mw.statusLabel.Importance = widget.DangerImportance

	portLabel := widget.NewLabel("MIDI Port:")
	portLabel.TextStyle = fyne.TextStyle{Bold: true}

	connection := container.NewVBox(
		container.NewBorder(nil, nil, portLabel, container.NewHBox(refreshBtn, connectBtn, disconnectBtn), mw.portSelect),
		mw.statusLabel,
		widget.NewSeparator(),
	)

	accordion := widget.NewAccordion()
	accordion.MultiOpen = true
	for i, section := range controls.Sections {
		content := mw.createSliderSection(section)
		if i == 0 {
			content = container.NewVBox(mw.createSelectors(), content)
		}
		item := widget.NewAccordionItem(section.Title, content)
		item.Open = true
		accordion.Append(item)
	}
	scenes := widget.NewAccordionItem("Scenes", mw.createScenesSection())
	scenes.Open = true
	accordion.Append(scenes)

	mw.window.SetContent(container.NewBorder(connection, nil, nil, nil, container.NewVScroll(accordion)))
}

// RefreshPorts re-enumerates endpoints and auto-connects
func (mw *MainWindow) RefreshPorts() {
	mw.endpoints = mw.router.Refresh()

	options := make([]string, 0, len(mw.endpoints))
	for _, d := range mw.endpoints {
		options = append(options, d.String())
	}
	mw.portSelect.Options = options

	if label, connected := mw.router.Status(); connected {
		for _, d := range mw.endpoints {
			if d.Label == label {
				mw.portSelect.SetSelected(d.String())
				break
			}
		}
	} else if len(options) > 0 {
		mw.portSelect.SetSelected(options[0])
	} else {
		mw.portSelect.ClearSelected()
	}
	mw.portSelect.Refresh()
}

func (mw *MainWindow) connectSelected() {
	selected := mw.portSelect.SelectedIndex()
	if selected < 0 || selected >= len(mw.endpoints) {
		return
	}
	if err := mw.router.Connect(mw.endpoints[selected]); err != nil {
		mw.logger.WithError(err).Warn("Connect failed")
	}
}

// OnStatusChanged implements router.Observer
func (mw *MainWindow) OnStatusChanged(label string, connected bool) {
	fyne.Do(func() {
		if connected {
			mw.statusLabel.SetText("Connected: " + label)
			mw.statusLabel.Importance = widget.SuccessImportance
		} else {
			mw.statusLabel.SetText(label)
			mw.statusLabel.Importance = widget.DangerImportance
		}
		mw.statusLabel.Refresh()
	})
}

// OnParameterMirrored implements router.Observer
func (mw *MainWindow) OnParameterMirrored(parameterID, value int) {
	fyne.Do(func() {
		mw.applyMirror(parameterID, value)
	})
}

func (mw *MainWindow) applyMirror(cc, value int) {
	mw.mirroring = true
	defer func() { mw.mirroring = false }()

	if slider, ok := mw.sliders[cc]; ok {
		slider.SetValue(float64(value))
		return
	}

	switch cc {
	case controls.CCAnimationMode:
		mw.animationSelect.SetSelected(controls.AnimationModes[controls.AnimationModeIndex(value)])
	case controls.CCMirrorMode:
		mw.mirrorSelect.SetSelected(controls.NearestOption(controls.MirrorModes, value).Name)
	case controls.CCDirection:
		mw.directionSelect.SetSelected(controls.NearestOption(controls.DirectionModes, value).Name)
	case controls.CCSceneSaveMode:
		mw.saveModeCheck.SetChecked(value > 37)
	}
}
