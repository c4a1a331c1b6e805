package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/schollz/sonifycore/internal/renderer"
)

// newDevicesCmd lists real-time MIDI output ports a --live-device value
// could resolve against, the live-preview counterpart to "palettes"/
// "catalog" for discovering what's available before submitting a job.
func newDevicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List available real-time MIDI output ports as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(renderer.ListLiveDevices())
		},
	}
	return cmd
}
