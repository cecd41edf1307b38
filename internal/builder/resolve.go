package builder

import "slices"

// Profile is the resolved, target-specific view over the global [build]
// section and a target's optional override block. Scalar options take the
// override value when one is present; list options are the global list
// extended by the override list. Resolution is pure: no I/O, no errors.
type Profile struct {
	global *BuildSection
	over   *BuildOverrides
}

func newProfile(global *BuildSection, over *BuildOverrides) Profile {
	return Profile{global: global, over: over}
}

func pick[T any](over *T, global T) T {
	if over != nil {
		return *over
	}
	return global
}

// mergeList extends the global list with the override list. The override
// never replaces the global list, only appends to it.
func mergeList(global, over []string) []string {
	merged := slices.Clone(global)
	return append(merged, over...)
}

func (p Profile) Compiler(lang Language) string {
	if lang == LangCpp {
		if p.over != nil {
			return pick(p.over.CppCompiler, p.global.CppCompiler)
		}
		return p.global.CppCompiler
	}
	if p.over != nil {
		return pick(p.over.CCompiler, p.global.CCompiler)
	}
	return p.global.CCompiler
}

func (p Profile) Standard(lang Language) string {
	if lang == LangCpp {
		if p.over != nil {
			return pick(p.over.CppStandard, p.global.CppStandard)
		}
		return p.global.CppStandard
	}
	if p.over != nil {
		return pick(p.over.CStandard, p.global.CStandard)
	}
	return p.global.CStandard
}

func (p Profile) Linker(lang Language) string {
	if lang == LangCpp {
		if p.over != nil {
			return pick(p.over.CppLinker, p.global.CppLinker)
		}
		return p.global.CppLinker
	}
	if p.over != nil {
		return pick(p.over.CLinker, p.global.CLinker)
	}
	return p.global.CLinker
}

func (p Profile) OptLevel() string {
	if p.over != nil {
		return pick(p.over.OptLevel, p.global.OptLevel)
	}
	return p.global.OptLevel
}

func (p Profile) Debug() bool {
	if p.over != nil {
		return pick(p.over.Debug, p.global.Debug)
	}
	return p.global.Debug
}

func (p Profile) WarningsAsErrors() bool {
	if p.over != nil {
		return pick(p.over.WarningsAsErrors, p.global.WarningsAsErrors)
	}
	return p.global.WarningsAsErrors
}

func (p Profile) Warnings() []string {
	if p.over != nil {
		return mergeList(p.global.Warnings, p.over.Warnings)
	}
	return slices.Clone(p.global.Warnings)
}

func (p Profile) Flags() []string {
	if p.over != nil {
		return mergeList(p.global.Flags, p.over.Flags)
	}
	return slices.Clone(p.global.Flags)
}

// Defines are global only; targets cannot override or extend them.
func (p Profile) Defines() []string {
	return slices.Clone(p.global.Defines)
}
