package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley executes declarative conversation flows",
	Long: `Parley runs conversation flows defined in YAML or JSON: menus, validated
input collection, webhook actions and AI chat segments, one turn at a time.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
