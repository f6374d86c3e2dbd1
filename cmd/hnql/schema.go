package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hnql/hnql/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the served GraphQL schema as SDL",
	RunE: func(cmd *cobra.Command, args []string) error {
		sch, err := schema.BuildHackerNews()
		if err != nil {
			return fmt.Errorf("build schema: %w", err)
		}
		sdl := schema.Render(sch)
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			cmd.OutOrStdout().Write([]byte(sdl))
			return nil
		}
		return os.WriteFile(out, []byte(sdl), 0644)
	},
}

func init() {
	schemaCmd.Flags().String("out", "", "write SDL to file instead of stdout")
	rootCmd.AddCommand(schemaCmd)
}
