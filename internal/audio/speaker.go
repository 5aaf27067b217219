// internal/audio/speaker.go
// Package audio drives the playback device used for keying sidetone.
package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/generators"
)

var (
	ErrNotInitialized = errors.New("audio playback not initialized")
	ErrAlreadyRunning = errors.New("audio playback already running")
	ErrNotRunning     = errors.New("audio playback not running")
)

// Config holds playback configuration
type Config struct {
	DeviceIndex int    // -1 for default device
	SampleRate  uint32 // e.g., 48000
	BufferSize  uint32 // frames per callback
}

// DefaultConfig returns sensible defaults for a sidetone
func DefaultConfig() Config {
	return Config{
		DeviceIndex: -1,
		SampleRate:  48000,
		BufferSize:  512,
	}
}

// Speaker is a mono playback device shared by everyone that wants to make
// a sound. Callers take it with Acquire, key the tone with Start/Stop and
// hand it back with Release.
type Speaker struct {
	config Config
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	mu     sync.Mutex

	running atomic.Bool

	// exclusive ownership token, capacity 1
	owner chan struct{}

	// streamerPtr is read by the audio thread on every callback; nil is silence
	streamerPtr atomic.Pointer[beep.Streamer]

	// scratch is only touched from the audio thread
	scratch [][2]float64
}

// New creates a new speaker instance
func New(cfg Config) *Speaker {
	return &Speaker{
		config: cfg,
		owner:  make(chan struct{}, 1),
	}
}

// Init initializes the audio backend
func (s *Speaker) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	s.ctx = ctx

	return nil
}

// ListDevices returns available playback devices
func (s *Speaker) ListDevices() ([]malgo.DeviceInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listDevices()
}

func (s *Speaker) listDevices() ([]malgo.DeviceInfo, error) {
	if s.ctx == nil {
		return nil, ErrNotInitialized
	}

	infos, err := s.ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}

	return infos, nil
}

// Open starts the playback device. It plays silence until a tone is
// started. The device is shut down when ctx is cancelled.
func (s *Speaker) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return ErrAlreadyRunning
	}
	if s.ctx == nil {
		return ErrNotInitialized
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.SampleRate = s.config.SampleRate
	deviceConfig.PeriodSizeInFrames = s.config.BufferSize
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = 1

	if s.config.DeviceIndex >= 0 {
		devices, err := s.listDevices()
		if err != nil {
			return err
		}
		if s.config.DeviceIndex >= len(devices) {
			return fmt.Errorf("device index %d out of range (have %d devices)",
				s.config.DeviceIndex, len(devices))
		}
		deviceConfig.Playback.DeviceID = devices[s.config.DeviceIndex].ID.Pointer()
	}

	onSendFrames := func(outputSamples, _ []byte, frameCount uint32) {
		var st beep.Streamer
		if p := s.streamerPtr.Load(); p != nil {
			st = *p
		}
		s.scratch = fill(outputSamples, int(frameCount), st, s.scratch)
	}

	device, err := malgo.InitDevice(s.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSendFrames,
	})
	if err != nil {
		return fmt.Errorf("init device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("start device: %w", err)
	}

	s.device = device
	s.running.Store(true)

	go func() {
		<-ctx.Done()
		_ = s.Shutdown()
	}()

	return nil
}

// Shutdown stops the playback device
func (s *Speaker) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return ErrNotRunning
	}

	s.streamerPtr.Store(nil)
	if s.device != nil {
		_ = s.device.Stop()
		s.device.Uninit()
		s.device = nil
	}

	s.running.Store(false)
	return nil
}

// Close releases all audio resources
func (s *Speaker) Close() error {
	if s.running.Load() {
		_ = s.Shutdown()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		if err := s.ctx.Uninit(); err != nil {
			return fmt.Errorf("uninit context: %w", err)
		}
		s.ctx.Free()
		s.ctx = nil
	}
	return nil
}

// IsRunning returns true if the playback device is open
func (s *Speaker) IsRunning() bool {
	return s.running.Load()
}

// Acquire takes exclusive use of the speaker, waiting at most timeout.
// It fails immediately when the device is not open.
func (s *Speaker) Acquire(timeout time.Duration) bool {
	if !s.running.Load() {
		return false
	}

	select {
	case s.owner <- struct{}{}:
		return true
	default:
	}
	if timeout <= 0 {
		return false
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case s.owner <- struct{}{}:
		return true
	case <-t.C:
		return false
	}
}

// Release silences the speaker and gives up ownership. Releasing a speaker
// that is not held is a no-op.
func (s *Speaker) Release() {
	s.streamerPtr.Store(nil)
	select {
	case <-s.owner:
	default:
	}
}

// Start keys a continuous sine tone at frequency Hz scaled by volume (0-1).
// An unplayable frequency leaves the speaker silent.
func (s *Speaker) Start(frequency, volume float64) {
	st, err := newTone(beep.SampleRate(s.config.SampleRate), frequency, volume)
	if err != nil {
		s.streamerPtr.Store(nil)
		return
	}
	s.streamerPtr.Store(&st)
}

// Stop silences the tone without releasing ownership.
func (s *Speaker) Stop() {
	s.streamerPtr.Store(nil)
}

// newTone builds a sine generator attenuated to volume.
func newTone(sr beep.SampleRate, frequency, volume float64) (beep.Streamer, error) {
	sine, err := generators.SineTone(sr, frequency)
	if err != nil {
		return nil, fmt.Errorf("sine tone: %w", err)
	}
	volume = math.Max(0, math.Min(1, volume))
	// Gain scales by (1 + Gain)
	return &effects.Gain{Streamer: sine, Gain: volume - 1}, nil
}

// fill writes frames mono float32 samples from st into out, silence when st
// is nil or exhausted. scratch is reused between calls and returned.
func fill(out []byte, frames int, st beep.Streamer, scratch [][2]float64) [][2]float64 {
	if limit := len(out) / 4; frames > limit {
		frames = limit
	}
	if cap(scratch) < frames {
		scratch = make([][2]float64, frames)
	}
	scratch = scratch[:frames]

	n := 0
	if st != nil {
		n, _ = st.Stream(scratch)
	}
	for i := 0; i < frames; i++ {
		var v float32
		if i < n {
			v = float32(scratch[i][0])
		}
		putFloat32(out[i*4:], v)
	}
	return scratch
}

// putFloat32 writes v as little-endian IEEE 754
func putFloat32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}
