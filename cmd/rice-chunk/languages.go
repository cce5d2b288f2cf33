package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func languagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List languages with a syntax grammar",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}

			langs := a.chunker.Registry().Languages()
			if a.format == formatText {
				for _, l := range langs {
					fmt.Fprintln(a.out, l)
				}
				return nil
			}
			return a.writeJSON(map[string][]string{"languages": langs})
		},
	}
}
