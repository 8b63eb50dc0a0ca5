package main

import (
	"context"
	"log"
	"os"

	"fyne.io/fyne/v2/app"
	"github.com/sirupsen/logrus"

	"github.com/PixPMusic/leslieleds-controller/internal/config"
	"github.com/PixPMusic/leslieleds-controller/internal/listener"
	"github.com/PixPMusic/leslieleds-controller/internal/midi"
	"github.com/PixPMusic/leslieleds-controller/internal/router"
	"github.com/PixPMusic/leslieleds-controller/internal/tray"
	"github.com/PixPMusic/leslieleds-controller/internal/window"
)

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.WithField("log_level", level).Warn("Unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := newLogger(cfg.LogLevel)
	defer midi.CloseDriver()

	// Router owns the single output transport
	r := router.New(
		midi.NewPacketBackend(cfg.VirtualPortName, logger),
		midi.NewSerialBackend(cfg.BaudRate, cfg.ReadTimeout, logger),
		router.Options{
			Channel:         cfg.MIDIChannel,
			PrimaryMarker:   cfg.PrimaryMarker,
			SecondaryMarker: cfg.SecondaryMarker,
		},
		logger,
	)

	// Virtual input is optional; without it the surface runs UI-only
	var source listener.Source
	virtualIn, err := midi.OpenVirtualInput(cfg.VirtualPortName)
	if err != nil {
		logger.WithError(err).Warn("Virtual MIDI input unavailable, external input disabled")
	} else {
		logger.WithField("port", virtualIn.Name()).Info("Virtual MIDI input open")
		source = virtualIn
	}

	inputListener := listener.New(source, r, cfg.PollInterval, logger)

	// Create Fyne app
	fyneApp := app.NewWithID("com.pixpmusic.leslieleds")

	mainWindow := window.NewMainWindow(fyneApp, r, logger)
	r.SetObserver(mainWindow)

	hasTray := tray.Setup(fyneApp, tray.Callbacks{
		OnOpen:       mainWindow.Show,
		OnRefresh:    mainWindow.RefreshPorts,
		OnDisconnect: r.Disconnect,
		OnQuit:       fyneApp.Quit,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fyneApp.Lifecycle().SetOnStarted(func() {
		mainWindow.RefreshPorts()
		inputListener.Start(ctx)
	})

	// Show window if first launch or when there is no tray to reopen it from
	if !cfg.FirstLaunchCompleted || !hasTray {
		if !cfg.FirstLaunchCompleted {
			cfg.FirstLaunchCompleted = true
			if err := cfg.Save(); err != nil {
				logger.WithError(err).Warn("Failed to save config")
			}
		}
		mainWindow.Show()
	}

	// Run the Fyne app (this blocks until app.Quit is called)
	fyneApp.Run()

	// Listener must be gone before its endpoint is closed
	if err := inputListener.Stop(cfg.ShutdownTimeout); err != nil {
		logger.WithError(err).Warn("Listener shutdown incomplete, leaving virtual input open")
	} else if virtualIn != nil {
		if err := virtualIn.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close virtual input")
		}
	}
	r.Disconnect()
}
