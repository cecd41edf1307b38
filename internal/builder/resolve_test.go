package builder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }
func boolptr(b bool) *bool    { return &b }

func TestMergeList(t *testing.T) {
	tests := []struct {
		name   string
		global []string
		over   []string
		want   []string
	}{
		{"override appends", []string{"g"}, []string{"a"}, []string{"g", "a"}},
		{"no override", []string{"g"}, nil, []string{"g"}},
		{"empty global", nil, []string{"a"}, []string{"a"}},
		{"both empty", nil, nil, nil},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := mergeList(test.global, test.over)
			require.Equal(t, test.want, got)
		})
	}
}

func TestMergeListDoesNotAliasGlobal(t *testing.T) {
	global := make([]string, 1, 4)
	global[0] = "g"

	merged := mergeList(global, []string{"a"})
	merged[0] = "changed"
	require.Equal(t, "g", global[0])
}

func TestProfileScalars(t *testing.T) {
	global := defaultBuildSection()
	global.CCompiler = "gcc"
	global.CppCompiler = "g++"
	global.OptLevel = "0"
	global.Debug = true

	t.Run("no overrides", func(t *testing.T) {
		p := newProfile(&global, nil)
		require.Equal(t, "gcc", p.Compiler(LangC))
		require.Equal(t, "g++", p.Compiler(LangCpp))
		require.Equal(t, "c11", p.Standard(LangC))
		require.Equal(t, "c++17", p.Standard(LangCpp))
		require.Equal(t, "0", p.OptLevel())
		require.True(t, p.Debug())
		require.False(t, p.WarningsAsErrors())
	})

	t.Run("present overrides win", func(t *testing.T) {
		p := newProfile(&global, &BuildOverrides{
			CCompiler:        strptr("clang"),
			CStandard:        strptr("c23"),
			OptLevel:         strptr("3"),
			Debug:            boolptr(false),
			WarningsAsErrors: boolptr(true),
		})
		require.Equal(t, "clang", p.Compiler(LangC))
		require.Equal(t, "g++", p.Compiler(LangCpp)) // untouched field falls through
		require.Equal(t, "c23", p.Standard(LangC))
		require.Equal(t, "3", p.OptLevel())
		require.False(t, p.Debug())
		require.True(t, p.WarningsAsErrors())
	})

	t.Run("false override beats true global", func(t *testing.T) {
		p := newProfile(&global, &BuildOverrides{Debug: boolptr(false)})
		require.False(t, p.Debug())
	})
}

func TestProfileLists(t *testing.T) {
	global := defaultBuildSection()
	global.Warnings = []string{"all"}
	global.Flags = []string{"-fno-common"}
	global.Defines = []string{"NDEBUG"}

	p := newProfile(&global, &BuildOverrides{
		Warnings: []string{"shadow"},
		Flags:    []string{"-fstack-protector"},
	})
	require.Equal(t, []string{"all", "shadow"}, p.Warnings())
	require.Equal(t, []string{"-fno-common", "-fstack-protector"}, p.Flags())

	// defines are global only, overrides have no say
	require.Equal(t, []string{"NDEBUG"}, p.Defines())
}

func TestProfileLinker(t *testing.T) {
	global := defaultBuildSection()
	global.CLinker = "gcc"
	global.CppLinker = "g++"

	p := newProfile(&global, &BuildOverrides{CppLinker: strptr("clang++")})
	require.Equal(t, "gcc", p.Linker(LangC))
	require.Equal(t, "clang++", p.Linker(LangCpp))
}
