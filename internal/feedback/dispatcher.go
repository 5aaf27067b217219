// internal/feedback/dispatcher.go
package feedback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ColonelBlimp/morsetrainer/internal/cw"
	"github.com/ColonelBlimp/morsetrainer/internal/recovery"
)

// Pulse timing defaults (milliseconds in the config file)
const (
	DefaultDotDuration    = 150 * time.Millisecond
	DefaultDashDuration   = 300 * time.Millisecond
	DefaultElementGap     = 100 * time.Millisecond
	DefaultAcquireTimeout = 1000 * time.Millisecond
	DefaultQueueCapacity  = 8
	DefaultFrequency      = 800.0

	drainPoll = 10 * time.Millisecond
)

var (
	// ErrAlreadyRunning indicates Start was called twice
	ErrAlreadyRunning = errors.New("dispatcher already running")
	// ErrNotRunning indicates Stop was called on an idle dispatcher
	ErrNotRunning = errors.New("dispatcher not running")
	// ErrToneRequired indicates a nil Tone was supplied
	ErrToneRequired = errors.New("tone output is required")
	// ErrLightRequired indicates a nil Light was supplied
	ErrLightRequired = errors.New("light output is required")
	// ErrVolumeRequired indicates a nil Volume was supplied
	ErrVolumeRequired = errors.New("volume is required")
	// ErrInvalidDuration indicates a pulse duration must be positive
	ErrInvalidDuration = errors.New("dot and dash durations must be positive")
	// ErrInvalidGap indicates the element gap must be non-negative
	ErrInvalidGap = errors.New("element gap must be non-negative")
	// ErrInvalidQueueCapacity indicates the queue needs at least one slot
	ErrInvalidQueueCapacity = errors.New("queue capacity must be positive")
)

// Config holds dispatcher configuration.
type Config struct {
	// DotDuration is how long a dot sounds (from config: dot_duration_ms)
	DotDuration time.Duration
	// DashDuration is how long a dash sounds (from config: dash_duration_ms)
	DashDuration time.Duration
	// ElementGap is the silence after each element (from config: element_gap_ms)
	ElementGap time.Duration
	// AcquireTimeout bounds the wait for the audio device (from config: acquire_timeout_ms)
	AcquireTimeout time.Duration
	// QueueCapacity bounds pending commands (from config: queue_capacity)
	QueueCapacity int
	// Frequency is the tone pitch in Hz (from config: tone_frequency)
	Frequency float64
	// VisualRequiresAudio skips the light as well when the device cannot be
	// acquired (from config: visual_requires_audio)
	VisualRequiresAudio bool
}

// DefaultConfig returns the stock pulse timing.
func DefaultConfig() Config {
	return Config{
		DotDuration:    DefaultDotDuration,
		DashDuration:   DefaultDashDuration,
		ElementGap:     DefaultElementGap,
		AcquireTimeout: DefaultAcquireTimeout,
		QueueCapacity:  DefaultQueueCapacity,
		Frequency:      DefaultFrequency,
	}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSleeper replaces the real-time sleeper.
func WithSleeper(s Sleeper) Option {
	return func(d *Dispatcher) {
		if s != nil {
			d.sleeper = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// Dispatcher is a single-consumer queue feeding a worker goroutine that
// drives tone and light pulses. Enqueue never blocks.
type Dispatcher struct {
	config  Config
	tone    Tone
	light   Light
	volume  *Volume
	sleeper Sleeper
	log     *zap.SugaredLogger

	queue chan Command

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}

	dropped atomic.Uint64
	played  atomic.Uint64
	skipped atomic.Uint64

	// queued or playing
	outstanding atomic.Int64
}

// New creates a dispatcher. It does not start the worker.
func New(cfg Config, tone Tone, light Light, volume *Volume, opts ...Option) (*Dispatcher, error) {
	if tone == nil {
		return nil, ErrToneRequired
	}
	if light == nil {
		return nil, ErrLightRequired
	}
	if volume == nil {
		return nil, ErrVolumeRequired
	}
	if cfg.DotDuration <= 0 || cfg.DashDuration <= 0 {
		return nil, ErrInvalidDuration
	}
	if cfg.ElementGap < 0 {
		return nil, ErrInvalidGap
	}
	if cfg.QueueCapacity <= 0 {
		return nil, ErrInvalidQueueCapacity
	}

	d := &Dispatcher{
		config:  cfg,
		tone:    tone,
		light:   light,
		volume:  volume,
		sleeper: TimerSleeper,
		log:     zap.NewNop().Sugar(),
		queue:   make(chan Command, cfg.QueueCapacity),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Enqueue offers cmd to the worker without blocking. When the queue is full
// the new command is dropped and false is returned; feedback is best-effort
// and the input path must never stall on it.
func (d *Dispatcher) Enqueue(cmd Command) bool {
	d.outstanding.Add(1)
	select {
	case d.queue <- cmd:
		return true
	default:
		d.outstanding.Add(-1)
		n := d.dropped.Add(1)
		d.log.Debugw("feedback queue full, dropping command", "command", cmd.String(), "dropped", n)
		return false
	}
}

// PlayDot enqueues a dot.
func (d *Dispatcher) PlayDot() bool {
	return d.Enqueue(Command{Kind: KindDot})
}

// PlayDash enqueues a dash.
func (d *Dispatcher) PlayDash() bool {
	return d.Enqueue(Command{Kind: KindDash})
}

// PlaySymbol enqueues a dot or a dash.
func (d *Dispatcher) PlaySymbol(sym cw.Symbol) bool {
	return d.Enqueue(SymbolCommand(sym))
}

// PlayCharacter enqueues every element of r.
func (d *Dispatcher) PlayCharacter(r rune) bool {
	return d.Enqueue(Command{Kind: KindCharacter, Char: r})
}

// PlayFlash enqueues a short green blink acknowledging a control action.
func (d *Dispatcher) PlayFlash() bool {
	return d.Enqueue(Command{Kind: KindFlash})
}

// Start launches the worker. The worker exits when ctx is cancelled or Stop
// is called.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.doneCh = make(chan struct{})
	d.running = true

	done := d.doneCh
	go func() {
		defer close(done)
		defer recovery.HandlePanicFunc(cancel)
		d.run(ctx)
	}()

	return nil
}

// Stop signals the worker and waits for it to exit. Commands still queued
// are abandoned; an in-flight pulse is cut short and its device released.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return ErrNotRunning
	}
	cancel, done := d.cancel, d.doneCh
	d.running = false
	d.mu.Unlock()

	cancel()
	<-done
	return nil
}

// Drain waits until every accepted command has finished playing. It needs
// a running worker and returns ctx.Err() if ctx ends first.
func (d *Dispatcher) Drain(ctx context.Context) error {
	for d.outstanding.Load() > 0 {
		if err := TimerSleeper.Sleep(ctx, drainPoll); err != nil {
			return err
		}
	}
	return nil
}

// IsRunning returns true while the worker is active
func (d *Dispatcher) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Dropped returns how many commands were rejected by a full queue.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Played returns how many elements have been pulsed.
func (d *Dispatcher) Played() uint64 {
	return d.played.Load()
}

// Skipped returns how many elements could not acquire the audio device.
func (d *Dispatcher) Skipped() uint64 {
	return d.skipped.Load()
}

// Pending returns the number of queued commands.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Config returns the current configuration
func (d *Dispatcher) Config() Config {
	return d.config
}

func (d *Dispatcher) run(ctx context.Context) {
	d.log.Debugw("feedback worker started")
	defer d.log.Debugw("feedback worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-d.queue:
			err := d.play(ctx, cmd)
			d.outstanding.Add(-1)
			if err != nil {
				return
			}
		}
	}
}

// play executes one command. It only fails when ctx is cancelled.
func (d *Dispatcher) play(ctx context.Context, cmd Command) error {
	switch cmd.Kind {
	case KindDot:
		return d.element(ctx, cw.Dot, d.config.ElementGap)
	case KindDash:
		return d.element(ctx, cw.Dash, d.config.ElementGap)
	case KindCharacter:
		code, ok := cw.Encode(cmd.Char)
		if !ok {
			d.log.Debugw("no code for character, skipping", "char", string(cmd.Char))
			return nil
		}
		for i, sym := range code {
			gap := d.config.ElementGap
			if i == 0 {
				// Shortened first gap so playback feels immediate
				gap /= 2
			}
			if err := d.element(ctx, sym, gap); err != nil {
				return err
			}
		}
		return nil
	case KindFlash:
		d.light.On(ColorGreen)
		defer d.light.Off(ColorGreen)
		return d.sleeper.Sleep(ctx, d.config.DotDuration)
	default:
		d.log.Debugw("unknown command kind", "kind", cmd.Kind.String())
		return nil
	}
}

// element drives one pulse followed by gap of silence.
func (d *Dispatcher) element(ctx context.Context, sym cw.Symbol, gap time.Duration) error {
	duration, color := d.config.DotDuration, ColorRed
	if sym == cw.Dash {
		duration, color = d.config.DashDuration, ColorBlue
	}

	if err := d.pulse(ctx, duration, color); err != nil {
		return err
	}
	return d.sleeper.Sleep(ctx, gap)
}

func (d *Dispatcher) pulse(ctx context.Context, duration time.Duration, color Color) error {
	acquired := d.tone.Acquire(d.config.AcquireTimeout)
	if !acquired {
		d.skipped.Add(1)
		d.log.Debugw("audio device unavailable", "color", color.String())
		if d.config.VisualRequiresAudio {
			return nil
		}
	} else {
		defer d.tone.Release()
	}

	// Volume is read per pulse so changes apply to queued commands too
	if acquired {
		if vol := d.volume.Load(); vol > 0 {
			d.tone.Start(d.config.Frequency, vol)
			defer d.tone.Stop()
		}
	}

	d.light.On(color)
	defer d.light.Off(color)
	d.played.Add(1)

	return d.sleeper.Sleep(ctx, duration)
}
