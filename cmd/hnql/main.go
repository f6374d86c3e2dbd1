// Package main is the entry point for the hnql CLI, a GraphQL gateway over
// the Hacker News item store.
package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "hnql",
	Short: "GraphQL gateway over the Hacker News item store",
	Long: `hnql serves a GraphQL API on top of the public Hacker News Firebase
item store. Items, users and feeds are fetched on demand, deduplicated per
request, and exposed as a typed content graph with @defer support.`,
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	viper.SetEnvPrefix("HNQL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of hnql",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("hnql %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
