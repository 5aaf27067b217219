// internal/trainer/event.go
package trainer

import (
	"fmt"
	"time"

	"github.com/ColonelBlimp/morsetrainer/internal/cw"
)

// Button is one of the six physical controls.
type Button uint8

const (
	ButtonOK Button = iota + 1
	ButtonBack
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

func (b Button) String() string {
	switch b {
	case ButtonOK:
		return "ok"
	case ButtonBack:
		return "back"
	case ButtonUp:
		return "up"
	case ButtonDown:
		return "down"
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	default:
		return fmt.Sprintf("button(%d)", uint8(b))
	}
}

// Phase distinguishes the edges of a button press.
type Phase uint8

const (
	PhasePress Phase = iota + 1
	PhaseRelease
)

// Event is consumed by Session.HandleEvent.
type Event interface {
	eventTime() time.Time
}

// TickEvent drives decoder polling. Hosts send one per refresh.
type TickEvent struct {
	Now time.Time
}

// SymbolEvent is a gesture the host has already classified as dot or dash.
type SymbolEvent struct {
	Symbol cw.Symbol
	Now    time.Time
}

// ButtonEvent is a raw button edge. Navigation acts on PhasePress; in
// practice mode the OK press length picks dot or dash on PhaseRelease.
type ButtonEvent struct {
	Button Button
	Phase  Phase
	Now    time.Time
}

func (e TickEvent) eventTime() time.Time   { return e.Now }
func (e SymbolEvent) eventTime() time.Time { return e.Now }
func (e ButtonEvent) eventTime() time.Time { return e.Now }

// Classifier turns press/release pairs into symbols by press length.
type Classifier struct {
	// LongPress is the shortest press that counts as a dash
	LongPress time.Duration

	pressedAt time.Time
	down      bool
}

// Press records the start of a press. A second press without a release
// restarts the measurement.
func (c *Classifier) Press(now time.Time) {
	c.pressedAt = now
	c.down = true
}

// Release ends the press. It returns false when no press was recorded.
func (c *Classifier) Release(now time.Time) (cw.Symbol, bool) {
	if !c.down {
		return 0, false
	}
	c.down = false
	if now.Sub(c.pressedAt) >= c.LongPress {
		return cw.Dash, true
	}
	return cw.Dot, true
}

// Reset forgets a press in progress.
func (c *Classifier) Reset() {
	c.down = false
	c.pressedAt = time.Time{}
}

// Down reports whether a press is in progress.
func (c *Classifier) Down() bool {
	return c.down
}
