package window

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/PixPMusic/leslieleds-controller/internal/controls"
)

// ============ CONTROL PANEL ============

func (mw *MainWindow) createSelectors() fyne.CanvasObject {
	mw.animationSelect = widget.NewSelect(controls.AnimationModes, func(s string) {
		if mw.mirroring {
			return
		}
		if err := mw.surface.SetAnimationMode(s); err != nil {
			mw.logger.WithError(err).Warn("Animation mode not sent")
		}
	})
	mw.animationSelect.Selected = controls.AnimationModes[0]

	mw.mirrorSelect = widget.NewSelect(optionNames(controls.MirrorModes), func(s string) {
		if mw.mirroring {
			return
		}
		if err := mw.surface.SetMirrorMode(s); err != nil {
			mw.logger.WithError(err).Warn("Mirror mode not sent")
		}
	})
	mw.mirrorSelect.Selected = controls.MirrorModes[0].Name

	mw.directionSelect = widget.NewSelect(optionNames(controls.DirectionModes), func(s string) {
		if mw.mirroring {
			return
		}
		if err := mw.surface.SetDirection(s); err != nil {
			mw.logger.WithError(err).Warn("Direction not sent")
		}
	})
	mw.directionSelect.Selected = controls.DirectionModes[0].Name

	return container.NewVBox(
		widget.NewLabel("Animation Mode:"), mw.animationSelect,
		widget.NewLabel("Mirror Mode:"), mw.mirrorSelect,
		widget.NewLabel("Direction:"), mw.directionSelect,
	)
}

func optionNames(options []controls.Option) []string {
	names := make([]string, 0, len(options))
	for _, o := range options {
		names = append(names, o.Name)
	}
	return names
}

func (mw *MainWindow) createSliderSection(section controls.Section) fyne.CanvasObject {
	box := container.NewVBox()
	for _, def := range section.Sliders {
		cc := def.CC

		valueLabel := widget.NewLabel(fmt.Sprintf("%d", def.Default))
		slider := widget.NewSlider(float64(def.Min), float64(def.Max))
		slider.Step = 1
		slider.Value = float64(def.Default)
		slider.OnChanged = func(v float64) {
			valueLabel.SetText(fmt.Sprintf("%d", int(v)))
			if mw.mirroring {
				return
			}
			mw.surface.SetParameter(cc, int(v))
		}
		mw.sliders[cc] = slider

		box.Add(container.NewBorder(nil, nil, widget.NewLabel(def.Label), valueLabel))
		box.Add(slider)
	}
	return box
}

func (mw *MainWindow) createScenesSection() fyne.CanvasObject {
	mw.saveModeCheck = widget.NewCheck("Scene Save Mode (>37 to save)", func(save bool) {
		if mw.mirroring {
			return
		}
		mw.surface.SetSceneSaveMode(save)
	})

	rows := container.NewGridWithColumns(5)
	for i := 0; i < controls.SceneCount; i++ {
		index := i
		rows.Add(widget.NewButton(fmt.Sprintf("Scene %d", i+1), func() {
			if err := mw.surface.Scene(index); err != nil {
				mw.logger.WithError(err).Warn("Scene not sent")
			}
		}))
	}

	blackout := widget.NewButton("BLACKOUT", func() {
		mw.surface.Blackout()
	})
	blackout.Importance = widget.DangerImportance

	return container.NewVBox(
		mw.saveModeCheck,
		widget.NewLabel("Scene Buttons:"),
		rows,
		widget.NewSeparator(),
		blackout,
	)
}
