package trainer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ColonelBlimp/morsetrainer/internal/cw"
	"github.com/ColonelBlimp/morsetrainer/internal/feedback"
)

type fakeTone struct {
	mu       sync.Mutex
	acquired int
	started  []float64
}

func (f *fakeTone) Acquire(time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquired++
	return true
}

func (f *fakeTone) Start(_, vol float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, vol)
}

func (f *fakeTone) Stop()    {}
func (f *fakeTone) Release() {}

func (f *fakeTone) volumes() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.started...)
}

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func instant() feedback.Sleeper {
	return feedback.SleeperFunc(func(ctx context.Context, _ time.Duration) error {
		return ctx.Err()
	})
}

func newSession(t *testing.T, cfg Config) (*Session, *fakeTone, *feedback.Indicator) {
	t.Helper()
	tone := &fakeTone{}
	light := &feedback.Indicator{}
	s, err := New(cfg, tone, light, WithFeedbackOptions(feedback.WithSleeper(instant())))
	require.NoError(t, err)
	return s, tone, light
}

func press(s *Session, b Button, now time.Time) RenderState {
	return s.HandleEvent(ButtonEvent{Button: b, Phase: PhasePress, Now: now})
}

func enterPractice(t *testing.T, s *Session) {
	t.Helper()
	press(s, ButtonDown, t0)
	st := press(s, ButtonOK, t0)
	require.Equal(t, ModePractice, st.Mode)
}

func TestNew_Validation(t *testing.T) {
	tone := &fakeTone{}
	light := &feedback.Indicator{}

	cfg := DefaultConfig()
	cfg.LongPress = 0
	_, err := New(cfg, tone, light)
	assert.ErrorIs(t, err, ErrInvalidLongPress)

	cfg = DefaultConfig()
	cfg.Decoder.MaxSymbols = 0
	_, err = New(cfg, tone, light)
	assert.ErrorIs(t, err, cw.ErrInvalidMaxSymbols)

	cfg = DefaultConfig()
	_, err = New(cfg, nil, light)
	assert.ErrorIs(t, err, feedback.ErrToneRequired)
}

func TestNew_InitialState(t *testing.T) {
	s, _, _ := newSession(t, DefaultConfig())

	st := s.State()
	assert.Equal(t, ModeMenu, st.Mode)
	assert.Equal(t, 0, st.MenuIndex)
	assert.Equal(t, 'A', st.LearnChar)
	assert.Equal(t, ".-", st.LearnCode.String())
	assert.Empty(t, st.Buffer)
	assert.Equal(t, rune(0), st.LastDecoded)
	assert.False(t, st.Unknown())
	assert.Empty(t, st.History)
	assert.InDelta(t, 0.25, st.Volume, 1e-9)
	assert.False(t, st.Quit)
}

func TestMenu_NavigationWraps(t *testing.T) {
	s, _, _ := newSession(t, DefaultConfig())

	assert.Equal(t, 2, press(s, ButtonUp, t0).MenuIndex)
	assert.Equal(t, 0, press(s, ButtonDown, t0).MenuIndex)
	assert.Equal(t, 1, press(s, ButtonDown, t0).MenuIndex)
	assert.Equal(t, 2, press(s, ButtonDown, t0).MenuIndex)
	assert.Equal(t, 0, press(s, ButtonDown, t0).MenuIndex)
}

func TestMenu_EnterEachMode(t *testing.T) {
	for i, want := range MenuItems {
		t.Run(want.String(), func(t *testing.T) {
			s, _, _ := newSession(t, DefaultConfig())
			for j := 0; j < i; j++ {
				press(s, ButtonDown, t0)
			}
			assert.Equal(t, want, press(s, ButtonOK, t0).Mode)
			assert.Equal(t, ModeMenu, press(s, ButtonBack, t0).Mode)
		})
	}
}

func TestMenu_BackQuits(t *testing.T) {
	s, _, _ := newSession(t, DefaultConfig())
	assert.True(t, press(s, ButtonBack, t0).Quit)
}

func TestMenu_IgnoresReleaseAndSymbols(t *testing.T) {
	s, _, _ := newSession(t, DefaultConfig())

	st := s.HandleEvent(ButtonEvent{Button: ButtonDown, Phase: PhaseRelease, Now: t0})
	assert.Equal(t, 0, st.MenuIndex)

	st = s.HandleEvent(SymbolEvent{Symbol: cw.Dot, Now: t0})
	assert.Empty(t, st.Buffer)
	assert.Equal(t, 0, s.Dispatcher().Pending())
}

func TestLearn_Navigation(t *testing.T) {
	s, _, _ := newSession(t, DefaultConfig())
	press(s, ButtonOK, t0)

	assert.Equal(t, '9', press(s, ButtonUp, t0).LearnChar, "up from A wraps to the last digit")
	assert.Equal(t, 'A', press(s, ButtonDown, t0).LearnChar)
	assert.Equal(t, 'B', press(s, ButtonDown, t0).LearnChar)

	st := press(s, ButtonRight, t0)
	assert.Equal(t, '0', st.LearnChar)
	assert.Equal(t, "-----", st.LearnCode.String())
	assert.Equal(t, 'Z', press(s, ButtonUp, t0).LearnChar)

	assert.Equal(t, 'A', press(s, ButtonLeft, t0).LearnChar)
}

func TestLearn_OKPlaysCharacter(t *testing.T) {
	s, _, _ := newSession(t, DefaultConfig())
	press(s, ButtonOK, t0)

	press(s, ButtonOK, t0)
	assert.Equal(t, 1, s.Dispatcher().Pending())
}

func TestPractice_SymbolEventsFillBuffer(t *testing.T) {
	s, _, _ := newSession(t, DefaultConfig())
	enterPractice(t, s)

	s.HandleEvent(SymbolEvent{Symbol: cw.Dash, Now: at(0)})
	st := s.HandleEvent(SymbolEvent{Symbol: cw.Dot, Now: at(100)})

	assert.Equal(t, "-.", st.Buffer.String())
	assert.Equal(t, 2, s.Dispatcher().Pending(), "each symbol is echoed")
}

func TestPractice_ResolvesOnTick(t *testing.T) {
	s, _, _ := newSession(t, DefaultConfig())
	enterPractice(t, s)

	s.HandleEvent(SymbolEvent{Symbol: cw.Dot, Now: at(0)})
	s.HandleEvent(SymbolEvent{Symbol: cw.Dot, Now: at(50)})
	s.HandleEvent(SymbolEvent{Symbol: cw.Dot, Now: at(100)})

	st := s.HandleEvent(TickEvent{Now: at(2099)})
	assert.Equal(t, "...", st.Buffer.String())
	assert.Empty(t, st.History)

	st = s.HandleEvent(TickEvent{Now: at(2101)})
	assert.Empty(t, st.Buffer)
	assert.Equal(t, 'S', st.LastDecoded)
	assert.Equal(t, "S", st.History)
}

func TestPractice_GapSplitsCharacters(t *testing.T) {
	s, _, _ := newSession(t, DefaultConfig())
	enterPractice(t, s)

	s.HandleEvent(SymbolEvent{Symbol: cw.Dot, Now: at(0)})
	// No tick in between; the pause alone must end the first character
	st := s.HandleEvent(SymbolEvent{Symbol: cw.Dash, Now: at(2500)})
	assert.Equal(t, 'E', st.LastDecoded)
	assert.Equal(t, "-", st.Buffer.String())

	st = s.HandleEvent(TickEvent{Now: at(4500)})
	assert.Equal(t, 'T', st.LastDecoded)
	assert.Equal(t, "E T", st.History)
}

func TestPractice_SeparatorDeferredUntilInput(t *testing.T) {
	s, _, _ := newSession(t, DefaultConfig())
	enterPractice(t, s)

	s.HandleEvent(SymbolEvent{Symbol: cw.Dash, Now: at(0)})
	s.HandleEvent(TickEvent{Now: at(2000)})
	st := s.HandleEvent(TickEvent{Now: at(9000)})
	assert.Equal(t, "T", st.History, "idle time adds no trailing space")

	st = s.HandleEvent(SymbolEvent{Symbol: cw.Dash, Now: at(9100)})
	assert.Equal(t, "T ", st.History)
}

func TestPractice_UnknownShown(t *testing.T) {
	s, _, _ := newSession(t, DefaultConfig())
	enterPractice(t, s)

	for i, sym := range []cw.Symbol{cw.Dash, cw.Dash, cw.Dash, cw.Dash} {
		s.HandleEvent(SymbolEvent{Symbol: sym, Now: at(i * 10)})
	}
	st := s.HandleEvent(TickEvent{Now: at(5000)})

	assert.True(t, st.Unknown())
	assert.Empty(t, st.History)
	assert.Empty(t, st.Buffer)
}

func TestPractice_OverflowSeparatesForcedCharacter(t *testing.T) {
	s, _, _ := newSession(t, DefaultConfig())
	enterPractice(t, s)

	// 5 = ....., the sixth dot forces it out
	for i := 0; i < 6; i++ {
		s.HandleEvent(SymbolEvent{Symbol: cw.Dot, Now: at(i * 10)})
	}
	st := s.State()
	assert.Equal(t, '5', st.LastDecoded)
	assert.Equal(t, "5 ", st.History)
	assert.Equal(t, ".", st.Buffer.String())

	st = s.HandleEvent(TickEvent{Now: at(3000)})
	assert.Equal(t, "5 E", st.History)
}

func TestPractice_OKPressLengthClassifies(t *testing.T) {
	s, _, _ := newSession(t, DefaultConfig())
	enterPractice(t, s)

	st := press(s, ButtonOK, at(0))
	assert.True(t, st.Keying)
	s.HandleEvent(ButtonEvent{Button: ButtonOK, Phase: PhaseRelease, Now: at(120)})

	press(s, ButtonOK, at(400))
	st = s.HandleEvent(ButtonEvent{Button: ButtonOK, Phase: PhaseRelease, Now: at(700)})

	assert.False(t, st.Keying)
	assert.Equal(t, ".-", st.Buffer.String())
}

func TestPractice_StrayReleaseIgnored(t *testing.T) {
	s, _, _ := newSession(t, DefaultConfig())
	enterPractice(t, s)

	st := s.HandleEvent(ButtonEvent{Button: ButtonOK, Phase: PhaseRelease, Now: at(0)})
	assert.Empty(t, st.Buffer)
}

func TestPractice_RightClears(t *testing.T) {
	s, _, _ := newSession(t, DefaultConfig())
	enterPractice(t, s)

	s.HandleEvent(SymbolEvent{Symbol: cw.Dash, Now: at(0)})
	s.HandleEvent(TickEvent{Now: at(2000)})
	s.HandleEvent(SymbolEvent{Symbol: cw.Dot, Now: at(2100)})

	st := press(s, ButtonRight, at(2200))
	assert.Empty(t, st.Buffer)
	assert.Empty(t, st.History)
	assert.Equal(t, rune(0), st.LastDecoded)
}

func TestPractice_VolumeControls(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialVolume = 0.5
	s, _, _ := newSession(t, cfg)
	enterPractice(t, s)

	assert.InDelta(t, 0.6, press(s, ButtonUp, t0).Volume, 1e-9)
	assert.InDelta(t, 0.5, press(s, ButtonDown, t0).Volume, 1e-9)
	assert.InDelta(t, 0.4, press(s, ButtonDown, t0).Volume, 1e-9)
	assert.Equal(t, 3, s.Dispatcher().Pending(), "each change flashes")

	for i := 0; i < 10; i++ {
		press(s, ButtonDown, t0)
	}
	assert.Equal(t, 0.0, s.State().Volume)
}

func TestPractice_BackKeepsDecoderState(t *testing.T) {
	s, _, _ := newSession(t, DefaultConfig())
	enterPractice(t, s)

	s.HandleEvent(SymbolEvent{Symbol: cw.Dot, Now: at(0)})
	st := press(s, ButtonBack, at(10))
	assert.Equal(t, ModeMenu, st.Mode)

	// Ticks keep running outside practice, so the character still resolves
	st = s.HandleEvent(TickEvent{Now: at(2010)})
	assert.Equal(t, "E", st.History)
}

func TestPractice_LeavingResetsKeying(t *testing.T) {
	s, _, _ := newSession(t, DefaultConfig())
	enterPractice(t, s)

	press(s, ButtonOK, at(0))
	press(s, ButtonBack, at(10))
	assert.False(t, s.State().Keying)
}

func TestHelp_OnlyBackLeaves(t *testing.T) {
	s, _, _ := newSession(t, DefaultConfig())
	press(s, ButtonDown, t0)
	press(s, ButtonDown, t0)
	require.Equal(t, ModeHelp, press(s, ButtonOK, t0).Mode)

	for _, b := range []Button{ButtonOK, ButtonUp, ButtonDown, ButtonLeft, ButtonRight} {
		assert.Equal(t, ModeHelp, press(s, b, t0).Mode)
	}
	assert.Equal(t, ModeMenu, press(s, ButtonBack, t0).Mode)
}

func TestSession_FeedbackDroppedReported(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Feedback.QueueCapacity = 2
	s, _, _ := newSession(t, cfg)
	enterPractice(t, s)

	for i := 0; i < 5; i++ {
		s.HandleEvent(SymbolEvent{Symbol: cw.Dot, Now: at(i * 10)})
	}
	st := s.State()
	assert.Equal(t, uint64(3), st.Dropped)
	assert.Equal(t, ".....", st.Buffer.String(), "dropped feedback never drops input")
}

func TestSession_StartClose(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialVolume = 0.7
	s, tone, _ := newSession(t, cfg)

	require.NoError(t, s.Start(context.Background()))
	enterPractice(t, s)
	s.HandleEvent(SymbolEvent{Symbol: cw.Dash, Now: at(0)})

	require.Eventually(t, func() bool { return s.Dispatcher().Played() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Close())
	assert.Equal(t, []float64{0.7}, tone.volumes())

	assert.NoError(t, s.Close(), "second Close is harmless")
}

func TestRenderState_Unknown(t *testing.T) {
	assert.True(t, RenderState{LastDecoded: cw.Unknown}.Unknown())
	assert.False(t, RenderState{LastDecoded: 'K'}.Unknown())
	assert.False(t, RenderState{}.Unknown())
}
