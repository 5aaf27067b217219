// internal/feedback/output.go
package feedback

import (
	"context"
	"sync/atomic"
	"time"
)

// Tone is the exclusive audio output device.
// Acquire may fail; a successful Acquire must be paired with Release.
type Tone interface {
	Acquire(timeout time.Duration) bool
	Start(frequency, volume float64)
	Stop()
	Release()
}

// Color is a light channel.
type Color uint8

const (
	// ColorNone means the light is off
	ColorNone Color = iota
	// ColorRed marks a dot
	ColorRed
	// ColorBlue marks a dash
	ColorBlue
	// ColorGreen acknowledges a control action
	ColorGreen
)

func (c Color) String() string {
	switch c {
	case ColorRed:
		return "red"
	case ColorBlue:
		return "blue"
	case ColorGreen:
		return "green"
	default:
		return "off"
	}
}

// Light is the visual pulse output.
type Light interface {
	On(c Color)
	Off(c Color)
}

// Sleeper performs the blocking delays of a pulse. Sleep returns early with
// ctx.Err() when ctx is cancelled.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f.
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// TimerSleeper sleeps on a real timer.
var TimerSleeper Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
})

// Indicator is a Light that remembers the lit color so a renderer on
// another goroutine can draw it.
type Indicator struct {
	color atomic.Uint32
}

// On lights c.
func (i *Indicator) On(c Color) {
	i.color.Store(uint32(c))
}

// Off turns the light off if c is the lit color.
func (i *Indicator) Off(c Color) {
	i.color.CompareAndSwap(uint32(c), uint32(ColorNone))
}

// Color returns the lit color, ColorNone when dark.
func (i *Indicator) Color() Color {
	return Color(i.color.Load())
}

// NopTone never acquires. Used when no audio device is available.
type NopTone struct{}

func (NopTone) Acquire(time.Duration) bool { return false }
func (NopTone) Start(float64, float64)     {}
func (NopTone) Stop()                      {}
func (NopTone) Release()                   {}
