package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newPalettesCmd() *cobra.Command {
	var env envFlags
	cmd := &cobra.Command{
		Use:   "palettes",
		Short: "List known palettes as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := env.buildCore()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(c.ListPalettes())
		},
	}
	addEnvFlags(cmd, &env)
	return cmd
}

func newCatalogCmd() *cobra.Command {
	var env envFlags
	var version string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print a motif catalog version as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := env.buildCore()
			if err != nil {
				return err
			}
			cat, err := c.GetCatalog(version)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cat)
		},
	}
	addEnvFlags(cmd, &env)
	cmd.Flags().StringVar(&version, "catalog-version", "", "catalog version to print; built-in if unset")
	return cmd
}
