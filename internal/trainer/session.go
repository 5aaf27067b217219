// internal/trainer/session.go
// Package trainer wires the decoder and the feedback dispatcher behind a
// single event-driven entry point that any front end can drive.
package trainer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ColonelBlimp/morsetrainer/internal/cw"
	"github.com/ColonelBlimp/morsetrainer/internal/feedback"
)

// DefaultLongPress separates dots from dashes when keying with OK
const DefaultLongPress = 300 * time.Millisecond

// DefaultInitialVolume is the starting output level
const DefaultInitialVolume = 0.25

// ErrInvalidLongPress indicates the press threshold must be positive
var ErrInvalidLongPress = errors.New("long press threshold must be positive")

// Mode is the active screen.
type Mode uint8

const (
	ModeMenu Mode = iota
	ModeLearn
	ModePractice
	ModeHelp
)

func (m Mode) String() string {
	switch m {
	case ModeMenu:
		return "Menu"
	case ModeLearn:
		return "Learn"
	case ModePractice:
		return "Practice"
	case ModeHelp:
		return "Help"
	default:
		return "Unknown"
	}
}

// MenuItems lists the menu entries in display order.
var MenuItems = []Mode{ModeLearn, ModePractice, ModeHelp}

// Config holds session configuration.
type Config struct {
	Decoder       cw.DecoderConfig
	Feedback      feedback.Config
	LongPress     time.Duration
	InitialVolume float64
}

// DefaultConfig returns the stock trainer settings.
func DefaultConfig() Config {
	return Config{
		Decoder:       cw.DefaultDecoderConfig(),
		Feedback:      feedback.DefaultConfig(),
		LongPress:     DefaultLongPress,
		InitialVolume: DefaultInitialVolume,
	}
}

// RenderState is everything a front end needs to draw one frame.
type RenderState struct {
	Mode      Mode
	MenuIndex int

	// Learn mode
	LearnChar rune
	LearnCode cw.Code

	// Practice mode
	Buffer      cw.Code
	LastDecoded rune // 0 before the first resolution, cw.Unknown when unmatched
	History     string
	Keying      bool // OK is held down

	Volume  float64
	Dropped uint64
	Quit    bool
}

// Unknown reports whether the last resolution failed to match.
func (r RenderState) Unknown() bool {
	return r.LastDecoded == cw.Unknown
}

// Option configures a Session.
type Option func(*options)

type options struct {
	log         *zap.SugaredLogger
	feedbackOps []feedback.Option
}

// WithLogger sets the logger for the session and its dispatcher.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithFeedbackOptions passes options through to the dispatcher.
func WithFeedbackOptions(opts ...feedback.Option) Option {
	return func(o *options) {
		o.feedbackOps = append(o.feedbackOps, opts...)
	}
}

// Session owns the decoder, the dispatcher and the volume for one trainer
// run. HandleEvent must be called from a single goroutine.
type Session struct {
	decoder    *cw.Decoder
	dispatcher *feedback.Dispatcher
	volume     *feedback.Volume
	classifier Classifier
	alphabet   []rune
	log        *zap.SugaredLogger

	mode       Mode
	menuIndex  int
	learnIndex int
	quit       bool
}

// New creates a session driving tone and light.
func New(cfg Config, tone feedback.Tone, light feedback.Light, opts ...Option) (*Session, error) {
	if cfg.LongPress <= 0 {
		return nil, ErrInvalidLongPress
	}

	o := options{log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(&o)
	}

	decoder, err := cw.NewDecoder(cfg.Decoder)
	if err != nil {
		return nil, err
	}

	volume := feedback.NewVolume(cfg.InitialVolume)
	fbOpts := append([]feedback.Option{feedback.WithLogger(o.log.Named("feedback"))}, o.feedbackOps...)
	dispatcher, err := feedback.New(cfg.Feedback, tone, light, volume, fbOpts...)
	if err != nil {
		return nil, err
	}

	s := &Session{
		decoder:    decoder,
		dispatcher: dispatcher,
		volume:     volume,
		classifier: Classifier{LongPress: cfg.LongPress},
		alphabet:   cw.Alphabet(),
		log:        o.log,
	}
	decoder.SetCallback(func(res cw.Resolution) {
		s.log.Debugw("character resolved",
			"code", res.Code.String(),
			"char", string(res.Character),
			"forced", res.Forced)
	})
	return s, nil
}

// Start launches the feedback worker.
func (s *Session) Start(ctx context.Context) error {
	return s.dispatcher.Start(ctx)
}

// Close stops the feedback worker. Closing a session that never started is
// not an error.
func (s *Session) Close() error {
	if err := s.dispatcher.Stop(); err != nil && !errors.Is(err, feedback.ErrNotRunning) {
		return err
	}
	return nil
}

// Decoder returns the session decoder.
func (s *Session) Decoder() *cw.Decoder {
	return s.decoder
}

// Dispatcher returns the session dispatcher.
func (s *Session) Dispatcher() *feedback.Dispatcher {
	return s.dispatcher
}

// Volume returns the shared output level.
func (s *Session) Volume() *feedback.Volume {
	return s.volume
}

// HandleEvent applies ev and returns the resulting state.
func (s *Session) HandleEvent(ev Event) RenderState {
	switch e := ev.(type) {
	case TickEvent:
		s.decoder.Poll(e.Now)
	case SymbolEvent:
		if s.mode == ModePractice {
			s.key(e.Symbol, e.Now)
		}
	case ButtonEvent:
		s.button(e)
	}
	return s.State()
}

// State returns the current render state without changing anything.
func (s *Session) State() RenderState {
	snap := s.decoder.Snapshot()
	r := s.alphabet[s.learnIndex]
	code, _ := cw.Encode(r)
	return RenderState{
		Mode:        s.mode,
		MenuIndex:   s.menuIndex,
		LearnChar:   r,
		LearnCode:   code,
		Buffer:      snap.Buffer,
		LastDecoded: snap.LastDecoded,
		History:     snap.History,
		Keying:      s.classifier.Down(),
		Volume:      s.volume.Load(),
		Dropped:     s.dispatcher.Dropped(),
		Quit:        s.quit,
	}
}

// key feeds one symbol into the decoder. Polling first resolves a character
// whose pause has already elapsed so it is never merged with the new symbol.
func (s *Session) key(sym cw.Symbol, now time.Time) {
	s.decoder.Poll(now)
	s.separate()
	if _, forced := s.decoder.Submit(sym, now); forced {
		s.separate()
	}
	s.dispatcher.PlaySymbol(sym)
}

func (s *Session) separate() {
	if s.decoder.ConsumePendingSeparator() {
		s.decoder.AppendSeparator()
	}
}

func (s *Session) button(e ButtonEvent) {
	if s.mode == ModePractice && e.Button == ButtonOK {
		s.keyOK(e)
		return
	}
	if e.Phase != PhasePress {
		return
	}

	switch s.mode {
	case ModeMenu:
		s.menu(e.Button)
	case ModeLearn:
		s.learn(e.Button)
	case ModePractice:
		s.practice(e.Button)
	case ModeHelp:
		if e.Button == ButtonBack {
			s.enter(ModeMenu)
		}
	}
}

func (s *Session) keyOK(e ButtonEvent) {
	switch e.Phase {
	case PhasePress:
		s.classifier.Press(e.Now)
	case PhaseRelease:
		if sym, ok := s.classifier.Release(e.Now); ok {
			s.key(sym, e.Now)
		}
	}
}

func (s *Session) menu(b Button) {
	n := len(MenuItems)
	switch b {
	case ButtonUp:
		s.menuIndex = (s.menuIndex + n - 1) % n
	case ButtonDown:
		s.menuIndex = (s.menuIndex + 1) % n
	case ButtonOK:
		s.enter(MenuItems[s.menuIndex])
	case ButtonBack:
		s.quit = true
	}
}

func (s *Session) learn(b Button) {
	n := len(s.alphabet)
	switch b {
	case ButtonOK:
		s.dispatcher.PlayCharacter(s.alphabet[s.learnIndex])
	case ButtonLeft:
		s.learnIndex = s.indexOf('A')
	case ButtonRight:
		s.learnIndex = s.indexOf('0')
	case ButtonDown:
		s.learnIndex = (s.learnIndex + 1) % n
	case ButtonUp:
		s.learnIndex = (s.learnIndex + n - 1) % n
	case ButtonBack:
		s.enter(ModeMenu)
	}
}

func (s *Session) practice(b Button) {
	switch b {
	case ButtonRight:
		s.decoder.Clear()
	case ButtonUp:
		s.changeVolume(feedback.VolumeStep)
	case ButtonDown:
		s.changeVolume(-feedback.VolumeStep)
	case ButtonBack:
		s.enter(ModeMenu)
	}
}

func (s *Session) changeVolume(delta float64) {
	v := s.volume.Step(delta)
	s.dispatcher.PlayFlash()
	s.log.Debugw("volume changed", "volume", v)
}

func (s *Session) enter(m Mode) {
	s.log.Debugw("mode change", "from", s.mode.String(), "to", m.String())
	s.classifier.Reset()
	s.mode = m
}

func (s *Session) indexOf(r rune) int {
	for i, c := range s.alphabet {
		if c == r {
			return i
		}
	}
	return 0
}
