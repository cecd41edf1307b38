// crank clean [path]
package cmd

import (
	"os"
	"path/filepath"

	"github.com/crank-build/crank/internal/builder"
	"github.com/crank-build/crank/internal/msg"
	"github.com/spf13/cobra"
)

var cleanDeps bool

func doClean(cmd *cobra.Command, args []string) {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	target, err := filepath.Abs(target)
	if err != nil {
		msg.Fatal("%v", err)
	}

	cfg, err := builder.ParseConfigFromFile(filepath.Join(target, builder.ConfigFilename), builder.NewConfigEnv())
	if err != nil {
		msg.Fatal("%v", err)
	}

	removeDir(filepath.Join(target, cfg.Build.BuildDir), "build")
	if cleanDeps {
		removeDir(filepath.Join(target, cfg.Build.DepDir), "dependency")
	}
}

func removeDir(path, what string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		msg.Info("%s directory does not exist: %s", what, path)
		return
	}
	msg.Info("removing %s directory: %s", what, path)
	if err := os.RemoveAll(path); err != nil {
		msg.Fatal("failed to remove %s: %v", path, err)
	}
}

var cleanCmd = &cobra.Command{
	Use:   "clean [project path]",
	Short: "Remove build artifacts",
	Long:  `Remove the build directory. With --deps, remove the dependency directory as well.`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doClean,
}

func init() {
	// crank clean subcommand
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().BoolVarP(&cleanDeps, "deps", "d", false, "Clean the dependency directory as well")
}
