// cmd/encode.go
package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/morsetrainer/internal/cw"
	"github.com/ColonelBlimp/morsetrainer/internal/feedback"
	"github.com/ColonelBlimp/morsetrainer/internal/logger"
)

// Spacing between played characters and words
const (
	charGap = 300 * time.Millisecond
	wordGap = 1000 * time.Millisecond
)

var encodeCmd = &cobra.Command{
	Use:   "encode TEXT...",
	Short: "Print the Morse code for text",
	Long: `Encode text as Morse code. Characters are separated by spaces and words
by " / ". Characters outside A-Z and 0-9 are skipped.`,
	Example: `  morsetrainer encode sos
  morsetrainer encode --play "cq de"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEncode,
}

func init() {
	encodeCmd.Flags().BoolP("play", "p", false, "play the code through the speaker")
}

func runEncode(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	fmt.Fprintln(cmd.OutOrStdout(), cw.EncodeText(text))

	play, _ := cmd.Flags().GetBool("play")
	if !play {
		return nil
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	defer logger.Sync()

	tone, closeTone := openSpeaker(cmd.Context(), settings.AudioConfig())
	defer closeTone()

	// One slot per character so nothing is dropped
	cfg := settings.FeedbackConfig()
	cfg.QueueCapacity = len([]rune(text)) + 1

	d, err := feedback.New(cfg, tone, &feedback.Indicator{},
		feedback.NewVolume(settings.InitialVolume),
		feedback.WithLogger(logger.Named("feedback")))
	if err != nil {
		return err
	}
	if err := d.Start(cmd.Context()); err != nil {
		return err
	}
	defer d.Stop()

	return playText(cmd.Context(), d, text)
}

// playText plays words with character and word spacing added between them.
func playText(ctx context.Context, d *feedback.Dispatcher, text string) error {
	for i, word := range strings.Fields(text) {
		if i > 0 {
			if err := feedback.TimerSleeper.Sleep(ctx, wordGap); err != nil {
				return err
			}
		}
		first := true
		for _, r := range word {
			if _, ok := cw.Encode(r); !ok {
				continue
			}
			if !first {
				if err := feedback.TimerSleeper.Sleep(ctx, charGap); err != nil {
					return err
				}
			}
			first = false
			d.PlayCharacter(r)
			if err := d.Drain(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}
