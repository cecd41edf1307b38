package builder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"runtime"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/pelletier/go-toml/v2"
)

// ConfigFilename is the project manifest looked up in the project directory.
const ConfigFilename = "Crank.toml"

var (
	errConfigNotFound = errors.New("configuration file not found")
)

// Language is the implementation language of a target.
type Language uint8

const (
	LangC Language = iota
	LangCpp
)

func (l *Language) UnmarshalText(text []byte) error {
	switch string(text) {
	case "c":
		*l = LangC
	case "cpp", "c++", "cc", "cxx":
		*l = LangCpp
	default:
		return fmt.Errorf("unknown language %q (want c or cpp)", text)
	}
	return nil
}

func (l Language) String() string {
	if l == LangCpp {
		return "cpp"
	}
	return "c"
}

// sourcePatterns returns the non-recursive glob patterns matching this
// language's source files inside one source directory.
func (l Language) sourcePatterns() []string {
	switch l {
	case LangCpp:
		return []string{"*.cpp", "*.cc", "*.cxx"}
	default:
		return []string{"*.c"}
	}
}

// TargetType says what artifact a target produces.
type TargetType uint8

const (
	TargetBinary TargetType = iota
	TargetStaticLib
)

func (t *TargetType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "binary", "executable":
		*t = TargetBinary
	case "staticlib":
		*t = TargetStaticLib
	default:
		return fmt.Errorf("unknown target type %q (want binary or staticlib)", text)
	}
	return nil
}

func (t TargetType) String() string {
	if t == TargetStaticLib {
		return "staticlib"
	}
	return "binary"
}

type Config struct {
	Workspace    WorkspaceSection             `toml:"workspace"`
	Build        BuildSection                 `toml:"build"`
	Dependencies map[string]DependencySection `toml:"dependencies"`
	Targets      []TargetSection              `toml:"target"`
}

// WorkspaceSection defines the [workspace] section
type WorkspaceSection struct {
	Name string `toml:"name"`
}

// BuildSection defines the [build] section: the global defaults every
// target starts from.
type BuildSection struct {
	BuildDir         string   `toml:"build_dir"`
	DepDir           string   `toml:"dep_dir"`
	CompileCommands  bool     `toml:"compile_commands"`
	OptLevel         string   `toml:"opt_level"`
	CCompiler        string   `toml:"c_compiler"`
	CppCompiler      string   `toml:"cpp_compiler"`
	CStandard        string   `toml:"c_standard"`
	CppStandard      string   `toml:"cpp_standard"`
	CLinker          string   `toml:"c_linker"`
	CppLinker        string   `toml:"cpp_linker"`
	Debug            bool     `toml:"debug"`
	WarningsAsErrors bool     `toml:"warnings_as_errors"`
	Warnings         []string `toml:"warnings"`
	Flags            []string `toml:"flags"`
	Defines          []string `toml:"defines"`
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultBuildSection() BuildSection {
	cc := envOr("CC", "gcc")
	cxx := envOr("CXX", "g++")
	return BuildSection{
		BuildDir:        "build",
		DepDir:          "deps",
		CompileCommands: true,
		OptLevel:        "0",
		CCompiler:       cc,
		CppCompiler:     cxx,
		CStandard:       "c11",
		CppStandard:     "c++17",
		CLinker:         cc,
		CppLinker:       cxx,
		Debug:           true,
		Warnings:        []string{"all", "extra", "pedantic"},
	}
}

// BuildOverrides defines the optional [target.build] section. Absent fields
// fall through to the global [build] values; list fields extend the global
// lists instead of replacing them. Preprocessor defines cannot be overridden.
type BuildOverrides struct {
	OptLevel         *string  `toml:"opt_level"`
	CCompiler        *string  `toml:"c_compiler"`
	CppCompiler      *string  `toml:"cpp_compiler"`
	CStandard        *string  `toml:"c_standard"`
	CppStandard      *string  `toml:"cpp_standard"`
	CLinker          *string  `toml:"c_linker"`
	CppLinker        *string  `toml:"cpp_linker"`
	Debug            *bool    `toml:"debug"`
	WarningsAsErrors *bool    `toml:"warnings_as_errors"`
	Warnings         []string `toml:"warnings"`
	Flags            []string `toml:"flags"`
}

// DependencySection defines one [dependencies.<name>] section
type DependencySection struct {
	Source string   `toml:"source"`
	Ref    string   `toml:"ref"`
	Flags  []string `toml:"flags"`
}

// TargetSection defines one [[target]] entry. Directory lists are relative
// to the target's own directory (<project>/<name>).
type TargetSection struct {
	Name        string          `toml:"name"`
	Type        TargetType      `toml:"type"`
	Language    Language        `toml:"language"`
	SourceDirs  []string        `toml:"source_dirs"`
	IncludeDirs []string        `toml:"include_dirs"`
	LibDirs     []string        `toml:"lib_dirs"`
	Libs        []string        `toml:"libs"`
	Deps        []string        `toml:"deps"`
	Build       *BuildOverrides `toml:"build"`
}

func ParseConfig(rdr io.Reader, env ConfigEnv) (*Config, error) {
	var rawConfig map[string]any
	dec := toml.NewDecoder(rdr)
	if err := dec.Decode(&rawConfig); err != nil {
		if derr, ok := err.(*toml.DecodeError); ok {
			return nil, errors.New(derr.String())
		}
		return nil, err
	}

	processed, err := processExpressions(rawConfig, env)
	if err != nil {
		return nil, fmt.Errorf("error processing expressions in config: %w", err)
	}

	data, err := toml.Marshal(processed)
	if err != nil {
		return nil, err
	}

	cfg := new(Config)
	cfg.Build = defaultBuildSection()
	if err := toml.Unmarshal(data, cfg); err != nil {
		if derr, ok := err.(*toml.DecodeError); ok {
			return nil, errors.New(derr.String())
		}
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks cross-field rules and fills per-target defaults. Target
// names must be unique: the name doubles as the output subdirectory and the
// cache key namespace.
func (cfg *Config) validate() error {
	seen := make(map[string]bool, len(cfg.Targets))
	for i := range cfg.Targets {
		t := &cfg.Targets[i]
		if t.Name == "" {
			return fmt.Errorf("target %d has no name", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate target name %q", t.Name)
		}
		seen[t.Name] = true

		if len(t.SourceDirs) == 0 {
			t.SourceDirs = []string{"src"}
		}
		if len(t.IncludeDirs) == 0 {
			t.IncludeDirs = []string{"include"}
		}

		for _, dep := range t.Deps {
			if _, ok := cfg.Dependencies[dep]; !ok {
				return fmt.Errorf("target %q references unknown dependency %q", t.Name, dep)
			}
		}
	}
	return nil
}

// ParseConfigFromFile parses and validates a config file from a filepath
func ParseConfigFromFile(path string, env ConfigEnv) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errConfigNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	return ParseConfig(bufio.NewReader(f), env)
}

//
// expr-lang helpers
//

// ConfigEnv is the environment visible to {{...}} expressions in config
// string values.
type ConfigEnv struct {
	TargetOS   string            `expr:"target_os"`
	TargetArch string            `expr:"target_arch"`
	Environ    map[string]string `expr:"environ"`
}

func NewConfigEnv() ConfigEnv {
	environ := make(map[string]string)
	for _, e := range os.Environ() {
		if i := strings.Index(e, "="); i >= 0 {
			environ[e[:i]] = e[i+1:]
		}
	}

	return ConfigEnv{
		TargetOS:   runtime.GOOS,
		TargetArch: runtime.GOARCH,
		Environ:    environ,
	}
}

var exprRegex = regexp.MustCompile(`\{\{(.+?)\}\}`)

// evaluateString finds and evaluates all {{...}} expressions in a string
func evaluateString(s string, env ConfigEnv) (string, error) {
	matches := exprRegex.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	var builder strings.Builder
	lastIndex := 0

	for _, m := range matches {
		builder.WriteString(s[lastIndex:m[0]])

		expression := strings.TrimSpace(s[m[2]:m[3]])
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			return "", fmt.Errorf("failed to compile expression %q: %w", expression, err)
		}

		result, err := expr.Run(program, env)
		if err != nil {
			return "", fmt.Errorf("failed to run expression %q: %w", expression, err)
		}

		builder.WriteString(fmt.Sprintf("%v", result))
		lastIndex = m[1]
	}

	builder.WriteString(s[lastIndex:])

	return builder.String(), nil
}

// processExpressions recursively walks the parsed TOML data and evaluates
// expressions in strings
func processExpressions(data any, env ConfigEnv) (any, error) {
	switch v := data.(type) {
	case map[string]any:
		for key, val := range v {
			processed, err := processExpressions(val, env)
			if err != nil {
				return nil, err
			}
			v[key] = processed
		}
		return v, nil
	case []any:
		for i, item := range v {
			processed, err := processExpressions(item, env)
			if err != nil {
				return nil, err
			}
			v[i] = processed
		}
		return v, nil
	case string:
		return evaluateString(v, env)
	default:
		return data, nil
	}
}
