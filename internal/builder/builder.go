package builder

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/crank-build/crank/internal/msg"
)

var (
	errNoBinaryTarget = errors.New("no binary target found in configuration")
)

// Builder owns one build invocation: the parsed config, the change cache
// and the compile-command map. It is single-threaded; one external process
// runs to completion before the next is started.
type Builder struct {
	cfg           *Config
	basedir       string
	cache         *changeCache
	db            *compileDB
	configChanged bool
}

func NewBuilderInDirectory(path string) (*Builder, error) {
	var err error
	path, err = filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(path, ConfigFilename)
	cfg, err := ParseConfigFromFile(configPath, NewConfigEnv())
	if err != nil {
		return nil, err
	}

	buildDir := filepath.Join(path, cfg.Build.BuildDir)
	cache, err := loadChangeCache(buildDir)
	if err != nil {
		return nil, err
	}
	db, err := loadCompileDB(buildDir)
	if err != nil {
		return nil, err
	}

	b := &Builder{cfg: cfg, basedir: path, cache: cache, db: db}

	// a touched config forces every source of every target through the
	// compile step this run
	b.configChanged, err = cache.IsUpdated(configPath)
	if err != nil {
		return nil, err
	}
	if b.configChanged {
		msg.Info("configuration changed, rebuilding all targets")
	}

	return b, nil
}

func (b *Builder) buildDir() string {
	return filepath.Join(b.basedir, b.cfg.Build.BuildDir)
}

// Build runs the whole pipeline: fetch dependencies, build dependencies,
// then compile and link every target in declaration order. Any failure
// aborts the remaining pipeline; artifacts already produced stay on disk.
func (b *Builder) Build() error {
	if err := os.MkdirAll(b.buildDir(), 0755); err != nil {
		return fmt.Errorf("failed to create build directory: %w", err)
	}

	if err := b.fetchDependencies(); err != nil {
		return err
	}
	if err := b.buildDependencies(); err != nil {
		return err
	}

	for i := range b.cfg.Targets {
		t := &b.cfg.Targets[i]
		msg.Info("building target %q", t.Name)

		objs, err := b.compileTarget(t)
		if err != nil {
			return err
		}
		if err := b.linkTarget(t, objs); err != nil {
			return err
		}
	}

	if b.cfg.Build.CompileCommands {
		if err := b.db.Save(b.buildDir()); err != nil {
			return fmt.Errorf("failed to write compile database: %w", err)
		}
	}
	if err := b.cache.Save(b.buildDir()); err != nil {
		return fmt.Errorf("failed to write change cache: %w", err)
	}

	return nil
}

// BuildAndRun builds the project, then executes the first binary target's
// artifact with the given arguments.
func (b *Builder) BuildAndRun(args []string) error {
	var run *TargetSection
	for i := range b.cfg.Targets {
		if b.cfg.Targets[i].Type == TargetBinary {
			run = &b.cfg.Targets[i]
			break
		}
	}
	if run == nil {
		return errNoBinaryTarget
	}

	if err := b.Build(); err != nil {
		return err
	}

	exe := filepath.Join(b.buildDir(), run.Name, run.Name)
	msg.Info("running %s", exe)

	cmd := exec.Command(exe, args...)
	cmd.Dir = b.basedir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}
