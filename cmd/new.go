// crank new [path], crank init [name]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/crank-build/crank/internal/builder"
	"github.com/crank-build/crank/internal/msg"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func writefile(content string, elem ...string) {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err = os.WriteFile(path, []byte(content), 0o644); err != nil {
			msg.Fatal("create file %s: %v", path, err)
		}
		fmt.Printf("%s file: %s\n", color.HiGreenString("Created"), filepath.ToSlash(path))
	}
}

func mkdir(elem ...string) {
	path := filepath.Join(elem...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		msg.Fatal("mkdir %s: %v", path, err)
	}
}

func getProgramName() string {
	if len(os.Args) == 0 {
		return "crank"
	}
	basename := filepath.Base(os.Args[0])
	return strings.TrimSuffix(basename, filepath.Ext(basename))
}

func manifestTemplate(name, targetName string, lib bool, cpp bool) string {
	targetType := "binary"
	if lib {
		targetType = "staticlib"
	}
	lang := "c"
	if cpp {
		lang = "cpp"
	}
	return `[workspace]
name = "` + name + `"

[build]

[[target]]
name = "` + targetName + `"
type = "` + targetType + `"
language = "` + lang + `"
source_dirs = ["src"]
include_dirs = ["include"]
`
}

func binaryMain(cpp bool) string {
	if cpp {
		return `#include <iostream>

int main() {
    std::cout << "Hello, World!" << std::endl;
    return 0;
}
`
	}
	return `#include <stdio.h>

int main(void) {
    printf("Hello, World!\n");
    return 0;
}
`
}

func libSource(name string, cpp bool) string {
	if cpp {
		return `#include "` + name + `.h"
#include <iostream>

void ` + name + `_hello() {
    std::cout << "Hello from ` + name + `!" << std::endl;
}
`
	}
	return `#include "` + name + `.h"
#include <stdio.h>

void ` + name + `_hello() {
    printf("Hello from ` + name + `!\n");
}
`
}

func libHeader(name string) string {
	upper := strings.ToUpper(name)
	return `#ifndef ` + upper + `_H
#define ` + upper + `_H

void ` + name + `_hello();

#endif // ` + upper + `_H
`
}

// initIn initializes a project in an existing specified directory
func initIn(dir, name string, lib bool) {
	cpp := flagLanguage.Value() == "cpp"
	targetName := name
	if lib {
		targetName = "lib" + name
	}

	writefile(manifestTemplate(name, targetName, lib, cpp), dir, builder.ConfigFilename)

	mkdir(dir, targetName, "src")
	mkdir(dir, targetName, "include")

	srcExt := ".c"
	if cpp {
		srcExt = ".cpp"
	}

	if lib {
		writefile(libSource(targetName, cpp), dir, targetName, "src", targetName+srcExt)
		writefile(libHeader(targetName), dir, targetName, "include", targetName+".h")
	} else {
		writefile(binaryMain(cpp), dir, targetName, "src", "main"+srcExt)
	}

	writefile(`# Ignore build artifacts
/build/
/deps/

# Ignore OS generated files
.DS_Store
Thumbs.db
`, dir, ".gitignore")

	programName := getProgramName()
	fmt.Printf("You can now do %s to build, or %s to build and run.\n",
		color.HiCyanString(programName+" "+dir), color.HiCyanString(programName+" run "+dir))
}

var (
	library      bool
	flagLanguage EnumValue = NewEnumValue("c", map[string]string{
		"c":   "Plain C project (default)",
		"cpp": "C++ project",
	})
)

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Create a new project in the current directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initIn(".", args[0], library)
	},
}

var newCmd = &cobra.Command{
	Use:   "new [path]",
	Short: "Create a new project in a new directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mkdir(args[0])
		initIn(args[0], filepath.Base(args[0]), library)
	},
}

func addNewFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&library, "lib", "l", false, "Create a static library target")
	cmd.Flags().Var(&flagLanguage, "lang", "Project language, one of "+flagLanguage.HelpString())
	cmd.RegisterFlagCompletionFunc("lang", flagLanguage.CompletionFunc())
}

func init() {
	// crank init subcommand
	rootCmd.AddCommand(initCmd)
	addNewFlags(initCmd)

	// crank new subcommand
	rootCmd.AddCommand(newCmd)
	addNewFlags(newCmd)
}
