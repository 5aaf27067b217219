// cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ColonelBlimp/morsetrainer/internal/audio"
	"github.com/ColonelBlimp/morsetrainer/internal/cli/practice"
	"github.com/ColonelBlimp/morsetrainer/internal/config"
	"github.com/ColonelBlimp/morsetrainer/internal/feedback"
	"github.com/ColonelBlimp/morsetrainer/internal/logger"
	"github.com/ColonelBlimp/morsetrainer/internal/trainer"
)

// Replaced in tests
var (
	runTUI      = practice.Run
	openSpeaker = openAudio
)

var rootCmd = &cobra.Command{
	Use:   "morsetrainer",
	Short: "Learn and practise Morse code",
	Long: `An interactive Morse code trainer. Browse the alphabet in learn mode,
then key characters with dots and dashes in practice mode and watch them
decode as you pause.`,
	RunE:          runTrainer,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	rootCmd.PersistentFlags().IntP("device", "d", -1, "audio device index (-1 for default)")
	rootCmd.PersistentFlags().Float64P("frequency", "f", 800, "sidetone frequency in Hz")
	rootCmd.PersistentFlags().Float64P("volume", "v", 0.25, "initial volume (0.0-1.0)")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug logging")

	rootCmd.AddCommand(encodeCmd, decodeCmd, devicesCmd)
}

// bindFlags binds global flags to viper. Only flags the user actually set
// override the config file.
func bindFlags() {
	flags := rootCmd.PersistentFlags()
	viper.BindPFlag("device_index", flags.Lookup("device"))
	viper.BindPFlag("tone_frequency", flags.Lookup("frequency"))
	viper.BindPFlag("initial_volume", flags.Lookup("volume"))
	viper.BindPFlag("debug", flags.Lookup("debug"))
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	bindFlags()
}

// loadSettings reads the validated configuration and starts logging.
func loadSettings() (*config.Settings, error) {
	settings, err := config.Get()
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(settings.LogFile, settings.Debug); err != nil {
		return nil, err
	}
	return settings, nil
}

// openAudio opens the playback device. Without a usable device the trainer
// still runs with the light alone.
func openAudio(ctx context.Context, cfg audio.Config) (feedback.Tone, func()) {
	log := logger.Named("audio")

	speaker := audio.New(cfg)
	if err := speaker.Init(); err != nil {
		log.Warnw("audio unavailable, continuing without sound", "error", err)
		return feedback.NopTone{}, func() {}
	}
	if err := speaker.Open(ctx); err != nil {
		log.Warnw("audio device failed to open, continuing without sound", "error", err)
		_ = speaker.Close()
		return feedback.NopTone{}, func() {}
	}
	log.Infow("audio device open", "device_index", cfg.DeviceIndex, "sample_rate", cfg.SampleRate)

	return speaker, func() {
		if err := speaker.Close(); err != nil {
			log.Warnw("closing audio device", "error", err)
		}
	}
}

func runTrainer(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tone, closeTone := openSpeaker(ctx, settings.AudioConfig())
	defer closeTone()

	light := &feedback.Indicator{}
	session, err := trainer.New(trainer.Config{
		Decoder:       settings.DecoderConfig(),
		Feedback:      settings.FeedbackConfig(),
		LongPress:     settings.LongPress(),
		InitialVolume: settings.InitialVolume,
	}, tone, light, trainer.WithLogger(logger.Named("trainer")))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("start feedback: %w", err)
	}
	defer session.Close()

	logger.Logger.Infow("trainer started",
		"decode_timeout", settings.DecoderConfig().Timeout,
		"tick", settings.TickInterval())

	start := time.Now()
	err = runTUI(ctx, session, light, settings.TickInterval())
	logger.Logger.Infow("trainer stopped", "elapsed", time.Since(start).Round(time.Second))
	return err
}
