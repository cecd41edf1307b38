// crank run [path]
package cmd

import (
	"github.com/crank-build/crank/internal/builder"
	"github.com/crank-build/crank/internal/msg"
	"github.com/spf13/cobra"
)

func doRun(cmd *cobra.Command, args []string) {
	target := "."
	if len(args) > 0 {
		target = args[0]
		args = args[1:] // other arguments will be passed to program
	}
	b, err := builder.NewBuilderInDirectory(target)
	if err != nil {
		msg.Fatal("%v", err)
	}
	if err := b.BuildAndRun(args); err != nil {
		msg.Fatal("%v", err)
	}
}

var runCmd = &cobra.Command{
	Use:   "run [project path]",
	Short: "Build and run the project",
	Long:  `Build the project, then run its first binary target. If no project path is given, uses "."`,
	Args:  cobra.ArbitraryArgs,
	Run:   doRun,
}

func init() {
	// crank run subcommand
	rootCmd.AddCommand(runCmd)
}
