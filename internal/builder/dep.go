package builder

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/crank-build/crank/internal/msg"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
)

var (
	errDependencyMissing = errors.New("dependency not found")
)

func (b *Builder) depsDir() string {
	return filepath.Join(b.basedir, b.cfg.Build.DepDir)
}

// fetchDependency makes sure <dep_dir>/<name> exists, cloning the source
// when it doesn't. An existing directory is trusted as-is: no integrity
// check against the recorded ref.
func (b *Builder) fetchDependency(name string, dep DependencySection) error {
	path := filepath.Join(b.depsDir(), name)
	if _, err := os.Stat(path); err == nil {
		msg.Info("dependency %q already exists, skipping fetch", name)
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat dependency %q: %w", name, err)
	}

	if err := os.MkdirAll(b.depsDir(), 0755); err != nil {
		return fmt.Errorf("failed to create dependency directory: %w", err)
	}

	msg.Info("cloning dependency %q from %s", name, dep.Source)
	if err := cloneDependency(dep, path); err != nil {
		return fmt.Errorf("failed to fetch dependency %q: %w", name, err)
	}
	return nil
}

// cloneDependency clones a Git remote into the specified directory,
// checking out the configured ref (branch, tag or commit) when one is set.
func cloneDependency(dep DependencySection, toWhere string) error {
	base := git.CloneOptions{
		URL:               dep.Source,
		Progress:          &msg.IndentWriter{Indent: "    ", W: os.Stdout},
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	}

	if dep.Ref == "" {
		base.Depth = 1 // we can do a shallow clone of the latest commit
		_, err := git.PlainClone(toWhere, &base)
		return err
	}

	// a ref naming a branch clones directly; after a plain clone only
	// refs/remotes/origin/<name> would exist, which ResolveRevision does
	// not reach
	branch := base
	branch.ReferenceName = plumbing.NewBranchReferenceName(dep.Ref)
	branch.SingleBranch = true
	if _, err := git.PlainClone(toWhere, &branch); err == nil {
		return nil
	}
	if err := os.RemoveAll(toWhere); err != nil {
		return err
	}

	// not a branch: clone everything and check the ref out as a tag or commit
	repo, err := git.PlainClone(toWhere, &base)
	if err != nil {
		return err
	}

	w, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("could not get worktree: %w", err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(dep.Ref))
	if err != nil {
		return fmt.Errorf("could not resolve revision `%s`: %w", dep.Ref, err)
	}

	if err := w.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return fmt.Errorf("failed to checkout `%s`: %w", dep.Ref, err)
	}

	return nil
}

// buildDependency runs the dependency's own configure and build steps inside
// a nested build directory. There is no caching: both steps run on every
// invocation even when nothing changed.
func (b *Builder) buildDependency(name string, dep DependencySection) error {
	path := filepath.Join(b.depsDir(), name)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: dependency %q at %s", errDependencyMissing, name, path)
	}

	buildPath := filepath.Join(path, "build")
	if err := os.MkdirAll(buildPath, 0755); err != nil {
		return fmt.Errorf("failed to create build directory for dependency %q: %w", name, err)
	}

	args := []string{".."}
	args = append(args, dep.Flags...)
	args = append(args, b.profileConfigureFlags()...)

	msg.Info("configuring dependency %q", name)
	if err := runTool(buildPath, "cmake", args...); err != nil {
		return fmt.Errorf("failed to configure dependency %q: %w", name, err)
	}

	msg.Info("building dependency %q", name)
	if err := runTool(buildPath, "cmake", "--build", "."); err != nil {
		return fmt.Errorf("failed to build dependency %q: %w", name, err)
	}

	return nil
}

// profileConfigureFlags translates the active build profile into configure
// flags passed to every dependency.
func (b *Builder) profileConfigureFlags() []string {
	if b.cfg.Build.Debug {
		return []string{"-DCMAKE_BUILD_TYPE=Debug"}
	}
	return []string{"-DCMAKE_BUILD_TYPE=Release"}
}

// runTool runs an external command in dir, wired to our stdio. The working
// directory is set per invocation; the process-wide one is never changed.
func runTool(dir, tool string, args ...string) error {
	cmd := exec.Command(tool, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func (b *Builder) fetchDependencies() error {
	for name, dep := range b.cfg.Dependencies {
		if err := b.fetchDependency(name, dep); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) buildDependencies() error {
	for name, dep := range b.cfg.Dependencies {
		if err := b.buildDependency(name, dep); err != nil {
			return err
		}
	}
	return nil
}
