package builder

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// CompileDBFilename is the compilation database inside the build directory,
// in the shape clang tooling consumes directly.
const CompileDBFilename = "compile_commands.json"

// CompileCommand is one entry of the compilation database.
type CompileCommand struct {
	Directory string   `json:"directory"`
	Arguments []string `json:"arguments"`
	File      string   `json:"file"`
}

// compileDB accumulates compile commands keyed by absolute source path, so
// recompiling a file overwrites its entry instead of duplicating it. Entries
// for files that were skipped this run survive from the previous database.
type compileDB struct {
	entries map[string]CompileCommand
}

func loadCompileDB(buildDir string) (*compileDB, error) {
	db := &compileDB{entries: make(map[string]CompileCommand)}

	f, err := os.Open(filepath.Join(buildDir, CompileDBFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return db, nil
		}
		return nil, err
	}
	defer f.Close()

	var commands []CompileCommand
	if err := json.NewDecoder(bufio.NewReader(f)).Decode(&commands); err != nil {
		return nil, fmt.Errorf("failed to read compile database: %w", err)
	}
	for _, cmd := range commands {
		db.entries[cmd.File] = cmd
	}
	return db, nil
}

func (db *compileDB) Put(cmd CompileCommand) {
	db.entries[cmd.File] = cmd
}

func (db *compileDB) Save(buildDir string) error {
	commands := make([]CompileCommand, 0, len(db.entries))
	for _, cmd := range db.entries {
		commands = append(commands, cmd)
	}
	// stable output: re-serializing unchanged state is byte-identical
	slices.SortFunc(commands, func(a, b CompileCommand) int {
		return strings.Compare(a.File, b.File)
	})

	f, err := os.Create(filepath.Join(buildDir, CompileDBFilename))
	if err != nil {
		return err
	}
	defer f.Close()

	bufw := bufio.NewWriter(f)
	defer bufw.Flush()

	enc := json.NewEncoder(bufw)
	enc.SetIndent("", "  ")
	return enc.Encode(commands)
}
