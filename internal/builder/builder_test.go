package builder

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// stubCompiler writes an executable script that logs its arguments and
// creates whatever file follows -o, standing in for a compiler or linker.
func stubCompiler(t *testing.T, dir, name string) (tool, logFile string) {
	t.Helper()
	tool = filepath.Join(dir, name)
	logFile = filepath.Join(dir, name+".log")
	script := `#!/bin/sh
echo "$@" >> ` + logFile + `
out=
prev=
for a in "$@"; do
	[ "$prev" = "-o" ] && out=$a
	prev=$a
done
[ -n "$out" ] && printf '#!/bin/sh\necho ran\n' > "$out" && chmod +x "$out"
exit 0
`
	require.NoError(t, os.WriteFile(tool, []byte(script), 0o755))
	return tool, logFile
}

// stubArchiver mimics `ar rcs out objs...` by creating the output file.
func stubArchiver(t *testing.T, dir string) string {
	t.Helper()
	logFile := filepath.Join(dir, "ar.log")
	script := `#!/bin/sh
echo "$@" >> ` + logFile + `
shift
echo stub > "$1"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ar"), []byte(script), 0o755))
	return logFile
}

func writeProject(t *testing.T, cc, ld string) string {
	t.Helper()
	proj := t.TempDir()

	manifest := `[workspace]
name = "demo"

[build]
c_compiler = "` + cc + `"
c_linker = "` + ld + `"

[[target]]
name = "app"
type = "binary"
language = "c"
`
	require.NoError(t, os.WriteFile(filepath.Join(proj, ConfigFilename), []byte(manifest), 0o644))

	srcDir := filepath.Join(proj, "app", "src")
	require.NoError(t, os.MkdirAll(srcDir, 0o755))
	writeTestFile(t, srcDir, "main.c", "int main(void) { return 0; }")

	return proj
}

func readCompileDB(t *testing.T, buildDir string) []CompileCommand {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(buildDir, CompileDBFilename))
	require.NoError(t, err)
	var commands []CompileCommand
	require.NoError(t, json.Unmarshal(data, &commands))
	return commands
}

func TestBuildEndToEnd(t *testing.T) {
	tools := t.TempDir()
	cc, ccLog := stubCompiler(t, tools, "cc")
	ld, ldLog := stubCompiler(t, tools, "ld")
	proj := writeProject(t, cc, ld)
	buildDir := filepath.Join(proj, "build")

	// first build compiles and links everything
	b, err := NewBuilderInDirectory(proj)
	require.NoError(t, err)
	require.True(t, b.configChanged, "config is unseen on the first run")
	require.NoError(t, b.Build())

	require.FileExists(t, filepath.Join(buildDir, "app", "main.o"))
	require.FileExists(t, filepath.Join(buildDir, "app", "app"))
	require.FileExists(t, filepath.Join(buildDir, CacheFilename))
	require.Len(t, toolLog(t, ccLog), 1)
	require.Len(t, toolLog(t, ldLog), 1)

	commands := readCompileDB(t, buildDir)
	require.Len(t, commands, 1)
	require.Equal(t, proj, commands[0].Directory)
	require.Equal(t, filepath.Join(proj, "app", "src", "main.c"), commands[0].File)
	require.Equal(t, cc, commands[0].Arguments[0])

	// second build with no changes recompiles nothing but still links
	b, err = NewBuilderInDirectory(proj)
	require.NoError(t, err)
	require.False(t, b.configChanged)
	require.NoError(t, b.Build())
	require.Len(t, toolLog(t, ccLog), 1)
	require.Len(t, toolLog(t, ldLog), 2)
	require.Len(t, readCompileDB(t, buildDir), 1)

	// editing the source recompiles exactly that file
	bump(t, filepath.Join(proj, "app", "src", "main.c"))
	b, err = NewBuilderInDirectory(proj)
	require.NoError(t, err)
	require.NoError(t, b.Build())
	require.Len(t, toolLog(t, ccLog), 2)
	require.Len(t, toolLog(t, ldLog), 3)
}

func TestBuildConfigChangeForcesRecompile(t *testing.T) {
	tools := t.TempDir()
	cc, ccLog := stubCompiler(t, tools, "cc")
	ld, _ := stubCompiler(t, tools, "ld")
	proj := writeProject(t, cc, ld)

	b, err := NewBuilderInDirectory(proj)
	require.NoError(t, err)
	require.NoError(t, b.Build())
	require.Len(t, toolLog(t, ccLog), 1)

	// touching just the config forces every source through the compiler
	// even though no source mtime changed
	bump(t, filepath.Join(proj, ConfigFilename))
	b, err = NewBuilderInDirectory(proj)
	require.NoError(t, err)
	require.True(t, b.configChanged)
	require.NoError(t, b.Build())
	require.Len(t, toolLog(t, ccLog), 2)
}

func TestBuildStaticLibrary(t *testing.T) {
	tools := t.TempDir()
	cc, _ := stubCompiler(t, tools, "cc")
	arLog := stubArchiver(t, tools)
	t.Setenv("PATH", tools+string(os.PathListSeparator)+os.Getenv("PATH"))

	proj := t.TempDir()
	manifest := `[workspace]
name = "demo"

[build]
c_compiler = "` + cc + `"
compile_commands = false

[[target]]
name = "core"
type = "staticlib"
language = "c"
`
	require.NoError(t, os.WriteFile(filepath.Join(proj, ConfigFilename), []byte(manifest), 0o644))
	srcDir := filepath.Join(proj, "core", "src")
	require.NoError(t, os.MkdirAll(srcDir, 0o755))
	writeTestFile(t, srcDir, "core.c", "")

	b, err := NewBuilderInDirectory(proj)
	require.NoError(t, err)
	require.NoError(t, b.Build())

	require.FileExists(t, filepath.Join(proj, "build", "core", "libcore.a"))
	require.Len(t, toolLog(t, arLog), 1)

	// compile database output is disabled
	require.NoFileExists(t, filepath.Join(proj, "build", CompileDBFilename))
}

func TestBuildFailureAborts(t *testing.T) {
	tools := t.TempDir()
	failing := filepath.Join(tools, "cc")
	require.NoError(t, os.WriteFile(failing, []byte("#!/bin/sh\nexit 1\n"), 0o755))
	ld, ldLog := stubCompiler(t, tools, "ld")
	proj := writeProject(t, failing, ld)

	b, err := NewBuilderInDirectory(proj)
	require.NoError(t, err)
	require.Error(t, b.Build())

	// the pipeline stopped before linking and before persisting artifacts
	require.Empty(t, toolLog(t, ldLog))
	require.NoFileExists(t, filepath.Join(proj, "build", CompileDBFilename))
	require.NoFileExists(t, filepath.Join(proj, "build", CacheFilename))
}

func TestBuildAndRun(t *testing.T) {
	tools := t.TempDir()
	cc, _ := stubCompiler(t, tools, "cc")
	ld, _ := stubCompiler(t, tools, "ld")
	proj := writeProject(t, cc, ld)

	b, err := NewBuilderInDirectory(proj)
	require.NoError(t, err)
	require.NoError(t, b.BuildAndRun(nil))
}

func TestBuildAndRunNoBinaryTarget(t *testing.T) {
	proj := t.TempDir()
	manifest := `[workspace]
name = "demo"

[[target]]
name = "core"
type = "staticlib"
`
	require.NoError(t, os.WriteFile(filepath.Join(proj, ConfigFilename), []byte(manifest), 0o644))

	b, err := NewBuilderInDirectory(proj)
	require.NoError(t, err)
	require.True(t, errors.Is(b.BuildAndRun(nil), errNoBinaryTarget))
}
