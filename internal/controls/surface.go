package controls

import (
	"fmt"

	"github.com/PixPMusic/leslieleds-controller/internal/midi"
)

// Sender accepts normalized messages; router.Router implements it
type Sender interface {
	Send(msg midi.ControlMessage)
}

// Surface is the event-emission interface the UI calls for every gesture.
// Channel is left at zero; the router stamps the configured channel.
type Surface struct {
	sender Sender
}

// NewSurface creates a surface that emits through sender
func NewSurface(sender Sender) *Surface {
	return &Surface{sender: sender}
}

// SetParameter sends a control change for a slider or selector
func (s *Surface) SetParameter(cc, value int) {
	s.sender.Send(midi.ParameterChange(0, cc, value))
}

// Trigger sends a note-on for a button
func (s *Surface) Trigger(note, strength int) {
	s.sender.Send(midi.Trigger(0, note, strength))
}

// SetAnimationMode selects a mode by name
func (s *Surface) SetAnimationMode(name string) error {
	for i, mode := range AnimationModes {
		if mode == name {
			s.SetParameter(CCAnimationMode, AnimationModeValue(i))
			return nil
		}
	}
	return fmt.Errorf("unknown animation mode: %s", name)
}

// SetMirrorMode selects a mirror mode by name
func (s *Surface) SetMirrorMode(name string) error {
	o, ok := LookupOption(MirrorModes, name)
	if !ok {
		return fmt.Errorf("unknown mirror mode: %s", name)
	}
	s.SetParameter(CCMirrorMode, o.Value)
	return nil
}

// SetDirection selects a direction mode by name
func (s *Surface) SetDirection(name string) error {
	o, ok := LookupOption(DirectionModes, name)
	if !ok {
		return fmt.Errorf("unknown direction: %s", name)
	}
	s.SetParameter(CCDirection, o.Value)
	return nil
}

// Scene recalls (or saves, in save mode) scene index 0-9
func (s *Surface) Scene(index int) error {
	if index < 0 || index >= SceneCount {
		return fmt.Errorf("scene index out of range: %d", index)
	}
	s.Trigger(NoteScene1+index, FullStrength)
	return nil
}

// Blackout triggers the blackout note
func (s *Surface) Blackout() {
	s.Trigger(NoteBlackout, FullStrength)
}

// SetSceneSaveMode toggles whether scene buttons store instead of recall
func (s *Surface) SetSceneSaveMode(save bool) {
	if save {
		s.SetParameter(CCSceneSaveMode, SceneSaveOn)
		return
	}
	s.SetParameter(CCSceneSaveMode, SceneSaveOff)
}
