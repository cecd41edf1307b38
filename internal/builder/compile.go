package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/crank-build/crank/internal/msg"
)

// compileUnit is one source file and the object file it compiles to.
type compileUnit struct {
	src string
	obj string
}

// discoverSources lists the immediate entries of every configured source
// directory and keeps the files matching the target's language. Discovery
// is not recursive; nested directories need their own source_dirs entry.
func (b *Builder) discoverSources(t *TargetSection, outDir string) ([]compileUnit, error) {
	var units []compileUnit
	targetDir := filepath.Join(b.basedir, t.Name)

	for _, srcDir := range t.SourceDirs {
		dir := filepath.Join(targetDir, srcDir)
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("failed to read source directory for target %q: %w", t.Name, err)
		}

		fsys := os.DirFS(dir)
		for _, pat := range t.Language.sourcePatterns() {
			matches, err := doublestar.Glob(fsys, pat, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("while globbing %s in %s: %w", pat, dir, err)
			}
			for _, match := range matches {
				src, err := filepath.Abs(filepath.Join(dir, match))
				if err != nil {
					return nil, err
				}
				stem := strings.TrimSuffix(match, filepath.Ext(match))
				units = append(units, compileUnit{
					src: src,
					obj: filepath.Join(outDir, stem+".o"),
				})
			}
		}
	}

	return units, nil
}

// buildCompileArgs assembles the compiler argument list for one compilation
// unit, everything after the compiler binary itself.
func buildCompileArgs(prof Profile, t *TargetSection, targetDir, src, obj string) []string {
	args := []string{"-std=" + prof.Standard(t.Language)}

	for _, w := range prof.Warnings() {
		args = append(args, "-W"+w)
	}
	if prof.WarningsAsErrors() {
		args = append(args, "-Werror")
	}

	args = append(args, prof.Flags()...)

	for _, def := range prof.Defines() {
		args = append(args, "-D"+def)
	}
	for _, dir := range t.IncludeDirs {
		args = append(args, "-I"+filepath.Join(targetDir, dir))
	}

	if prof.Debug() {
		args = append(args, "-g")
	}
	args = append(args, "-O"+prof.OptLevel())

	args = append(args, "-c", src, "-o", obj)
	return args
}

// compileTarget compiles a target's stale sources and returns the full set
// of object file paths (fresh or not) for the link step.
func (b *Builder) compileTarget(t *TargetSection) ([]string, error) {
	outDir := filepath.Join(b.buildDir(), t.Name)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory for target %q: %w", t.Name, err)
	}

	units, err := b.discoverSources(t, outDir)
	if err != nil {
		return nil, err
	}

	targetDir := filepath.Join(b.basedir, t.Name)
	prof := newProfile(&b.cfg.Build, t.Build)
	compiler := prof.Compiler(t.Language)

	objs := make([]string, 0, len(units))
	for _, unit := range units {
		objs = append(objs, unit.obj)

		updated, err := b.cache.IsUpdated(unit.src)
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", t.Name, err)
		}
		if !updated && !b.configChanged {
			msg.Skip("%s is up to date", unit.src)
			continue
		}

		args := buildCompileArgs(prof, t, targetDir, unit.src, unit.obj)

		if b.cfg.Build.CompileCommands {
			b.db.Put(CompileCommand{
				Directory: b.basedir,
				Arguments: append([]string{compiler}, args...),
				File:      unit.src,
			})
		}

		fmt.Printf("CC %s\n", unit.obj)
		if err := runTool(b.basedir, compiler, args...); err != nil {
			return nil, fmt.Errorf("failed to compile %s (target %q): %w", unit.src, t.Name, err)
		}
	}

	return objs, nil
}
