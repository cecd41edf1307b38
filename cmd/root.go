// crank [path], crank build [path]
package cmd

import (
	"fmt"
	"os"

	"github.com/crank-build/crank/internal/builder"
	"github.com/crank-build/crank/internal/msg"
	"github.com/spf13/cobra"
)

func doBuild(cmd *cobra.Command, args []string) {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	b, err := builder.NewBuilderInDirectory(target)
	if err != nil {
		msg.Fatal("%v", err)
	}
	if err := b.Build(); err != nil {
		msg.Fatal("%v", err)
	}
}

var rootCmd = &cobra.Command{
	Use:   "crank [project path]",
	Short: "Incremental build orchestrator for C/C++ projects",
	Long:  `Incremental build orchestrator for C/C++ projects`,
	Args:  cobra.MinimumNArgs(1),
	Run:   doBuild,
}

var buildCmd = &cobra.Command{
	Use:   "build [project path]",
	Short: "Build the project",
	Long:  `Build the project. If no project path is given, uses "."`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doBuild,
}

func init() {
	// crank build subcommand
	rootCmd.AddCommand(buildCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
