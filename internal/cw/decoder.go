// internal/cw/decoder.go
package cw

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Decoder defaults
const (
	// DefaultTimeout is the inactivity interval after which buffered symbols resolve
	DefaultTimeout = 2000 * time.Millisecond
	// DefaultMaxSymbols matches the longest valid code
	DefaultMaxSymbols = 5
	// DefaultHistoryWidth is the rolling history length
	DefaultHistoryWidth = 16
)

var (
	// ErrInvalidTimeout indicates the decode timeout must be positive
	ErrInvalidTimeout = errors.New("decode timeout must be positive")
	// ErrInvalidMaxSymbols indicates the symbol buffer bound is out of range
	ErrInvalidMaxSymbols = errors.New("max symbols must be between 1 and 6")
	// ErrInvalidHistoryWidth indicates history width must be positive
	ErrInvalidHistoryWidth = errors.New("history width must be positive")
)

// DecoderConfig holds configuration for the decoder.
type DecoderConfig struct {
	// Timeout is the pause that ends a character (from config: decode_timeout_ms)
	Timeout time.Duration
	// MaxSymbols bounds the symbol buffer (from config: max_symbols)
	MaxSymbols int
	// HistoryWidth is the capacity of the rolling history (from config: history_width)
	HistoryWidth int
}

// DefaultDecoderConfig returns the stock timing.
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		Timeout:      DefaultTimeout,
		MaxSymbols:   DefaultMaxSymbols,
		HistoryWidth: DefaultHistoryWidth,
	}
}

// Resolution describes one resolved character.
type Resolution struct {
	// Code is the buffer that was resolved
	Code Code
	// Character is the decoded rune, Unknown when nothing matched
	Character rune
	// Forced is true when the buffer overflowed rather than timed out
	Forced bool
	// Timestamp is the time passed to the call that resolved
	Timestamp time.Time
}

// Known reports whether the code mapped to a character.
func (r Resolution) Known() bool {
	return r.Character != Unknown
}

// ResolvedCallback observes resolutions. Must be non-blocking and fast.
type ResolvedCallback func(res Resolution)

// DecoderState is a copy of everything a renderer needs.
type DecoderState struct {
	Buffer      Code
	LastDecoded rune // 0 when nothing has resolved yet
	History     string
	Pending     bool
}

// Decoder segments a stream of symbols into characters using an
// inactivity timeout. Time is always supplied by the caller.
type Decoder struct {
	config DecoderConfig

	mu           sync.Mutex
	buffer       Code
	lastActivity time.Time // zero while idle
	history      []rune
	lastDecoded  rune
	pendingSep   bool

	callbackPtr atomic.Pointer[ResolvedCallback]
}

// NewDecoder creates a decoder with the given configuration.
func NewDecoder(cfg DecoderConfig) (*Decoder, error) {
	if cfg.Timeout <= 0 {
		return nil, ErrInvalidTimeout
	}
	if cfg.MaxSymbols < 1 || cfg.MaxSymbols > MaxCodeLength {
		return nil, ErrInvalidMaxSymbols
	}
	if cfg.HistoryWidth <= 0 {
		return nil, ErrInvalidHistoryWidth
	}

	return &Decoder{
		config:  cfg,
		buffer:  make(Code, 0, cfg.MaxSymbols),
		history: make([]rune, 0, cfg.HistoryWidth),
	}, nil
}

// SetCallback sets the resolution observer. The callback runs with the
// decoder lock held and must not call back into the decoder.
func (d *Decoder) SetCallback(cb ResolvedCallback) {
	if cb == nil {
		d.callbackPtr.Store(nil)
	} else {
		d.callbackPtr.Store(&cb)
	}
}

// Submit appends a symbol and stamps now as the last activity.
// A full buffer is resolved first; that forced resolution is returned.
// Submit never resolves on elapsed time; call Poll for that.
func (d *Decoder) Submit(sym Symbol, now time.Time) (Resolution, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var (
		res    Resolution
		forced bool
	)
	if len(d.buffer) >= d.config.MaxSymbols {
		res = d.resolve(now, true)
		forced = true
	}

	d.buffer = append(d.buffer, sym)
	d.lastActivity = now
	return res, forced
}

// Poll resolves the buffer once now is at least Timeout past the last
// symbol. It is a no-op while idle.
func (d *Decoder) Poll(now time.Time) (Resolution, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.buffer) == 0 {
		return Resolution{}, false
	}
	if now.Sub(d.lastActivity) < d.config.Timeout {
		return Resolution{}, false
	}
	return d.resolve(now, false), true
}

// resolve decodes the buffer and returns to idle. Caller holds mu.
func (d *Decoder) resolve(now time.Time, forced bool) Resolution {
	code := make(Code, len(d.buffer))
	copy(code, d.buffer)

	char := Decode(code)
	d.lastDecoded = char
	if char != Unknown {
		d.appendHistory(char)
		d.pendingSep = true
	}

	d.buffer = d.buffer[:0]
	d.lastActivity = time.Time{}

	res := Resolution{
		Code:      code,
		Character: char,
		Forced:    forced,
		Timestamp: now,
	}
	if cb := d.callbackPtr.Load(); cb != nil {
		(*cb)(res)
	}
	return res
}

// appendHistory pushes r, evicting the oldest entry once full. Caller holds mu.
func (d *Decoder) appendHistory(r rune) {
	if len(d.history) >= d.config.HistoryWidth {
		copy(d.history, d.history[1:])
		d.history = d.history[:len(d.history)-1]
	}
	d.history = append(d.history, r)
}

// ConsumePendingSeparator returns and clears the pending separator flag.
func (d *Decoder) ConsumePendingSeparator() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.pendingSep
	d.pendingSep = false
	return p
}

// AppendSeparator inserts a space into the history.
func (d *Decoder) AppendSeparator() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.appendHistory(' ')
}

// Clear resets the decoder to its initial state.
func (d *Decoder) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.buffer = d.buffer[:0]
	d.lastActivity = time.Time{}
	d.history = d.history[:0]
	d.lastDecoded = 0
	d.pendingSep = false
}

// Buffer returns a copy of the symbols awaiting resolution.
func (d *Decoder) Buffer() Code {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(Code, len(d.buffer))
	copy(out, d.buffer)
	return out
}

// LastDecoded returns the most recent resolution result, which may be
// Unknown. The second result is false before the first resolution.
func (d *Decoder) LastDecoded() (rune, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastDecoded, d.lastDecoded != 0
}

// History returns the rolling decoded text, oldest first.
func (d *Decoder) History() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return string(d.history)
}

// Idle reports whether no character is being accumulated.
func (d *Decoder) Idle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffer) == 0
}

// LastActivity returns the time of the most recent symbol; zero while idle.
func (d *Decoder) LastActivity() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastActivity
}

// Snapshot returns a consistent copy of the observable state.
func (d *Decoder) Snapshot() DecoderState {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf := make(Code, len(d.buffer))
	copy(buf, d.buffer)
	return DecoderState{
		Buffer:      buf,
		LastDecoded: d.lastDecoded,
		History:     string(d.history),
		Pending:     d.pendingSep,
	}
}

// Config returns the current configuration
func (d *Decoder) Config() DecoderConfig {
	return d.config
}
