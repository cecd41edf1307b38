package builder

import (
	"fmt"
	"path/filepath"
	"strings"
)

// linkFlag derives a -l flag from a library reference by stripping the file
// extension and a leading "lib" prefix: libfoo.a -> -lfoo, foo.so -> -lfoo.
func linkFlag(ref string) string {
	base := filepath.Base(ref)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimPrefix(base, "lib")
	return "-l" + base
}

// linkTarget produces the target's final artifact from its object files:
// an executable for binary targets, lib<name>.a for static libraries.
func (b *Builder) linkTarget(t *TargetSection, objs []string) error {
	outDir := filepath.Join(b.buildDir(), t.Name)
	targetDir := filepath.Join(b.basedir, t.Name)

	switch t.Type {
	case TargetStaticLib:
		out := filepath.Join(outDir, "lib"+t.Name+".a")

		args := []string{"rcs", out}
		args = append(args, objs...)

		fmt.Printf("AR %s\n", out)
		if err := runTool(b.basedir, "ar", args...); err != nil {
			return fmt.Errorf("failed to archive target %q: %w", t.Name, err)
		}
		return nil

	default: // TargetBinary
		prof := newProfile(&b.cfg.Build, t.Build)
		out := filepath.Join(outDir, t.Name)

		args := make([]string, 0, len(objs)+len(t.LibDirs)+len(t.Libs)+2)
		args = append(args, objs...)
		for _, dir := range t.LibDirs {
			args = append(args, "-L"+filepath.Join(targetDir, dir))
		}
		for _, lib := range t.Libs {
			args = append(args, linkFlag(lib))
		}
		args = append(args, "-o", out)

		fmt.Printf("LINK %s\n", out)
		if err := runTool(b.basedir, prof.Linker(t.Language), args...); err != nil {
			return fmt.Errorf("failed to link target %q: %w", t.Name, err)
		}
		return nil
	}
}
