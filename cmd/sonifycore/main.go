// Command sonifycore is a thin collaborator CLI over the sonification core:
// it only builds a Request from flags or a file and submits it. It holds
// no pipeline logic of its own.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sonifycore",
		Short: "Render a metrics time series into deterministic MIDI (and optional MP3)",
	}
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newPalettesCmd())
	cmd.AddCommand(newCatalogCmd())
	cmd.AddCommand(newDevicesCmd())
	return cmd
}
