// cmd/devices.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/morsetrainer/internal/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio playback devices",
	Long:  `List playback devices. Use the index with --device or device_index.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		speaker := audio.New(audio.DefaultConfig())
		if err := speaker.Init(); err != nil {
			return err
		}
		defer speaker.Close()

		devices, err := speaker.ListDevices()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(devices) == 0 {
			fmt.Fprintln(out, "no playback devices found")
			return nil
		}
		for i, d := range devices {
			marker := ""
			if d.IsDefault != 0 {
				marker = " (default)"
			}
			fmt.Fprintf(out, "[%d] %s%s\n", i, d.Name(), marker)
		}
		return nil
	},
}
