// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/ColonelBlimp/morsetrainer/internal/audio"
	"github.com/ColonelBlimp/morsetrainer/internal/cw"
	"github.com/ColonelBlimp/morsetrainer/internal/feedback"
)

const (
	AppName       = "morsetrainer"
	ConfigType    = "yaml"
	DefaultConfig = `# Morse Trainer Configuration

# Audio output
device_index: -1        # Playback device, -1 for default (see 'morsetrainer devices')
sample_rate: 48000      # Output sample rate in Hz
buffer_size: 512        # Frames per audio callback
tone_frequency: 800     # Sidetone frequency in Hz
initial_volume: 0.25    # Starting volume (0.0-1.0), Up/Down change it in steps of 0.1

# Pulse timing
dot_duration_ms: 150    # Length of a dot pulse
dash_duration_ms: 300   # Length of a dash pulse
element_gap_ms: 100     # Silence after each pulse
acquire_timeout_ms: 1000 # Wait for the audio device before skipping the tone
queue_capacity: 8       # Pending feedback commands, extra presses are not echoed
visual_requires_audio: false # Skip the light too when the audio device is busy

# Decoder
decode_timeout_ms: 2000 # Pause after the last symbol that ends a character
max_symbols: 5          # Symbols per character before it is forced out (1-6)
history_width: 16       # Decoded characters kept on screen

# Input
tick_interval_ms: 100   # Screen refresh and decoder poll interval
long_press_ms: 300      # Presses at least this long are dashes

# Output
log_file: ""            # Log destination, empty disables logging
debug: false            # Enable debug logging
`
)

// Settings holds all application configuration
type Settings struct {
	// Audio output
	DeviceIndex   int     `mapstructure:"device_index"`
	SampleRate    float64 `mapstructure:"sample_rate"`
	BufferSize    int     `mapstructure:"buffer_size"`
	ToneFrequency float64 `mapstructure:"tone_frequency"`
	InitialVolume float64 `mapstructure:"initial_volume"`

	// Pulse timing
	DotDurationMs       int  `mapstructure:"dot_duration_ms"`
	DashDurationMs      int  `mapstructure:"dash_duration_ms"`
	ElementGapMs        int  `mapstructure:"element_gap_ms"`
	AcquireTimeoutMs    int  `mapstructure:"acquire_timeout_ms"`
	QueueCapacity       int  `mapstructure:"queue_capacity"`
	VisualRequiresAudio bool `mapstructure:"visual_requires_audio"`

	// Decoder
	DecodeTimeoutMs int `mapstructure:"decode_timeout_ms"`
	MaxSymbols      int `mapstructure:"max_symbols"`
	HistoryWidth    int `mapstructure:"history_width"`

	// Input
	TickIntervalMs int `mapstructure:"tick_interval_ms"`
	LongPressMs    int `mapstructure:"long_press_ms"`

	// Output
	LogFile string `mapstructure:"log_file"`
	Debug   bool   `mapstructure:"debug"`
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/morsetrainer/
func Init() error {
	// Set defaults
	viper.SetDefault("device_index", -1)
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("buffer_size", 512)
	viper.SetDefault("tone_frequency", 800)
	viper.SetDefault("initial_volume", 0.25)
	viper.SetDefault("dot_duration_ms", 150)
	viper.SetDefault("dash_duration_ms", 300)
	viper.SetDefault("element_gap_ms", 100)
	viper.SetDefault("acquire_timeout_ms", 1000)
	viper.SetDefault("queue_capacity", 8)
	viper.SetDefault("visual_requires_audio", false)
	viper.SetDefault("decode_timeout_ms", 2000)
	viper.SetDefault("max_symbols", 5)
	viper.SetDefault("history_width", 16)
	viper.SetDefault("tick_interval_ms", 100)
	viper.SetDefault("long_press_ms", 300)
	viper.SetDefault("log_file", "")
	viper.SetDefault("debug", false)

	viper.SetConfigType(ConfigType)

	// Priority order: current directory first, then XDG config
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// Try .config.yaml first (hidden file), then config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	// Read config file - if not found, create default in XDG config dir
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			xdgConfigPath := filepath.Join(configDir, AppName)
			if err = ensureConfigExists(xdgConfigPath); err != nil {
				return err
			}
			if err = viper.ReadInConfig(); err != nil {
				return fmt.Errorf("read config: %w", err)
			}
		} else {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	// Audio output
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %v", s.SampleRate))
	}
	if s.BufferSize < 64 || s.BufferSize > 8192 {
		errs = append(errs, fmt.Errorf("buffer_size must be between 64 and 8192, got %d", s.BufferSize))
	}
	if s.BufferSize&(s.BufferSize-1) != 0 {
		errs = append(errs, fmt.Errorf("buffer_size should be a power of 2, got %d", s.BufferSize))
	}
	if s.ToneFrequency < 100 || s.ToneFrequency > 3000 {
		errs = append(errs, fmt.Errorf("tone_frequency must be between 100 and 3000 Hz, got %v", s.ToneFrequency))
	}
	if s.InitialVolume < 0.0 || s.InitialVolume > 1.0 {
		errs = append(errs, fmt.Errorf("initial_volume must be between 0.0 and 1.0, got %v", s.InitialVolume))
	}

	// Pulse timing
	if s.DotDurationMs < 10 || s.DotDurationMs > 2000 {
		errs = append(errs, fmt.Errorf("dot_duration_ms must be between 10 and 2000, got %d", s.DotDurationMs))
	}
	if s.DashDurationMs < 10 || s.DashDurationMs > 5000 {
		errs = append(errs, fmt.Errorf("dash_duration_ms must be between 10 and 5000, got %d", s.DashDurationMs))
	}
	if s.DashDurationMs <= s.DotDurationMs {
		errs = append(errs, fmt.Errorf("dash_duration_ms (%d) must be longer than dot_duration_ms (%d)", s.DashDurationMs, s.DotDurationMs))
	}
	if s.ElementGapMs < 0 || s.ElementGapMs > 2000 {
		errs = append(errs, fmt.Errorf("element_gap_ms must be between 0 and 2000, got %d", s.ElementGapMs))
	}
	if s.AcquireTimeoutMs < 0 || s.AcquireTimeoutMs > 10000 {
		errs = append(errs, fmt.Errorf("acquire_timeout_ms must be between 0 and 10000, got %d", s.AcquireTimeoutMs))
	}
	if s.QueueCapacity < 1 || s.QueueCapacity > 64 {
		errs = append(errs, fmt.Errorf("queue_capacity must be between 1 and 64, got %d", s.QueueCapacity))
	}

	// Decoder
	if s.DecodeTimeoutMs < 100 || s.DecodeTimeoutMs > 10000 {
		errs = append(errs, fmt.Errorf("decode_timeout_ms must be between 100 and 10000, got %d", s.DecodeTimeoutMs))
	}
	if s.MaxSymbols < 1 || s.MaxSymbols > cw.MaxCodeLength {
		errs = append(errs, fmt.Errorf("max_symbols must be between 1 and %d, got %d", cw.MaxCodeLength, s.MaxSymbols))
	}
	if s.HistoryWidth < 1 || s.HistoryWidth > 256 {
		errs = append(errs, fmt.Errorf("history_width must be between 1 and 256, got %d", s.HistoryWidth))
	}

	// Input
	if s.TickIntervalMs < 10 || s.TickIntervalMs > 1000 {
		errs = append(errs, fmt.Errorf("tick_interval_ms must be between 10 and 1000, got %d", s.TickIntervalMs))
	}
	if s.LongPressMs < 50 || s.LongPressMs > 2000 {
		errs = append(errs, fmt.Errorf("long_press_ms must be between 50 and 2000, got %d", s.LongPressMs))
	}

	// The decoder can only be as precise as the poll cadence
	if s.TickIntervalMs >= s.DecodeTimeoutMs {
		errs = append(errs, fmt.Errorf("tick_interval_ms (%d) must be shorter than decode_timeout_ms (%d)", s.TickIntervalMs, s.DecodeTimeoutMs))
	}

	// Nyquist check: tone frequency must be less than half the sample rate
	if s.ToneFrequency >= s.SampleRate/2 {
		errs = append(errs, fmt.Errorf("tone_frequency (%v Hz) must be less than Nyquist frequency (%v Hz)", s.ToneFrequency, s.SampleRate/2))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// DecoderConfig returns the decoder timing.
func (s *Settings) DecoderConfig() cw.DecoderConfig {
	return cw.DecoderConfig{
		Timeout:      ms(s.DecodeTimeoutMs),
		MaxSymbols:   s.MaxSymbols,
		HistoryWidth: s.HistoryWidth,
	}
}

// FeedbackConfig returns the pulse timing.
func (s *Settings) FeedbackConfig() feedback.Config {
	return feedback.Config{
		DotDuration:         ms(s.DotDurationMs),
		DashDuration:        ms(s.DashDurationMs),
		ElementGap:          ms(s.ElementGapMs),
		AcquireTimeout:      ms(s.AcquireTimeoutMs),
		QueueCapacity:       s.QueueCapacity,
		Frequency:           s.ToneFrequency,
		VisualRequiresAudio: s.VisualRequiresAudio,
	}
}

// AudioConfig returns the playback device settings.
func (s *Settings) AudioConfig() audio.Config {
	return audio.Config{
		DeviceIndex: s.DeviceIndex,
		SampleRate:  uint32(s.SampleRate),
		BufferSize:  uint32(s.BufferSize),
	}
}

// TickInterval returns the redraw and poll cadence.
func (s *Settings) TickInterval() time.Duration {
	return ms(s.TickIntervalMs)
}

// LongPress returns the dot/dash press threshold.
func (s *Settings) LongPress() time.Duration {
	return ms(s.LongPressMs)
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
