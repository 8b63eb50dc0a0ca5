// Package controls maps the LED engine's named controls to control messages.
package controls

// Control-change numbers understood by the LED engine firmware
const (
	CCMasterBrightness = 1
	CCAnimationSpeed   = 2
	CCAnimationCtrl    = 3
	CCStrobeRate       = 4
	CCBlendMode        = 5
	CCMirrorMode       = 6
	CCDirection        = 7
	CCAnimationMode    = 8

	CCColorAHue        = 20
	CCColorASaturation = 21
	CCColorAValue      = 22
	CCColorAWhite      = 23

	CCColorBHue        = 30
	CCColorBSaturation = 31
	CCColorBValue      = 32
	CCColorBWhite      = 33

	CCSceneSaveMode = 127
)

// Note numbers used as triggers
const (
	NoteScene1   = 36
	NoteBlackout = 48
	SceneCount   = 10
)

// Trigger strength sent for button presses
const FullStrength = 127

// Scene save toggle values; the firmware treats anything above 37 as save
const (
	SceneSaveOn  = 64
	SceneSaveOff = 0
)

// Slider describes one continuous control
type Slider struct {
	Label   string
	CC      int
	Min     int
	Max     int
	Default int
}

// Section groups sliders under a heading
type Section struct {
	Title   string
	Sliders []Slider
}

// Option is a named value of a selector control
type Option struct {
	Name  string
	Value int
}

// AnimationModes in firmware order
var AnimationModes = []string{
	"Solid",
	"Dual Solid",
	"Chase",
	"Dash",
	"Waveform",
	"Pulse",
	"Rainbow",
	"Sparkle",
	"Custom 1",
	"Custom 2",
}

// MirrorModes with the CC value that selects each
var MirrorModes = []Option{
	{"None", 0},
	{"Full", 38},
	{"Split 2", 63},
	{"Split 3", 88},
	{"Split 4", 114},
}

// DirectionModes with the CC value that selects each
var DirectionModes = []Option{
	{"Forward", 12},
	{"Backward", 38},
	{"Ping Pong", 63},
	{"Random", 88},
}

// Sections lists every slider shown by the surface. Master brightness keeps
// the 0-255 range of the hardware panel; values above 127 are clamped on send.
var Sections = []Section{
	{
		Title: "Global Controls",
		Sliders: []Slider{
			{"Master Brightness", CCMasterBrightness, 0, 255, 128},
			{"Animation Speed", CCAnimationSpeed, 0, 127, 64},
			{"Animation Control", CCAnimationCtrl, 0, 127, 0},
			{"Strobe Rate (0=off)", CCStrobeRate, 0, 127, 0},
			{"Blend Mode", CCBlendMode, 0, 127, 0},
		},
	},
	{
		Title: "Color A (RGBW)",
		Sliders: []Slider{
			{"Hue", CCColorAHue, 0, 127, 0},
			{"Saturation", CCColorASaturation, 0, 127, 127},
			{"Value", CCColorAValue, 0, 127, 127},
			{"White", CCColorAWhite, 0, 127, 0},
		},
	},
	{
		Title: "Color B (RGBW)",
		Sliders: []Slider{
			{"Hue", CCColorBHue, 0, 127, 64},
			{"Saturation", CCColorBSaturation, 0, 127, 127},
			{"Value", CCColorBValue, 0, 127, 127},
			{"White", CCColorBWhite, 0, 127, 0},
		},
	},
}

// AnimationModeValue returns the CC value in the middle of the mode's band
func AnimationModeValue(index int) int {
	return index*10 + 5
}

// AnimationModeIndex maps a received CC value back to a mode index
func AnimationModeIndex(value int) int {
	idx := value / 10
	if idx < 0 {
		return 0
	}
	if idx >= len(AnimationModes) {
		return len(AnimationModes) - 1
	}
	return idx
}

// LookupOption finds an option by name
func LookupOption(options []Option, name string) (Option, bool) {
	for _, o := range options {
		if o.Name == name {
			return o, true
		}
	}
	return Option{}, false
}

// NearestOption returns the option whose value is closest to value
func NearestOption(options []Option, value int) Option {
	best := options[0]
	for _, o := range options[1:] {
		if abs(o.Value-value) < abs(best.Value-value) {
			best = o
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
