package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func presetsCmd(a *app) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List the available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := a.catalog()
			if err != nil {
				return err
			}
			if asYAML {
				data, err := catalog.Marshal()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tENGINE\tCLASSIFICATION\tDESCRIPTION")
			for _, name := range catalog.Names() {
				p, _ := catalog.Lookup(name)
				class := p.Classification
				if class == "" {
					class = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, p.Engine, class, p.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the catalog as a presets file")
	return cmd
}
