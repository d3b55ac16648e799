// Package extract walks parsed C/C++ translation units and produces the
// top-level entities the index is built from: function definitions,
// prototypes, typedefs, records and function-like macros.
package extract

import (
	"strings"

	"github.com/1S33dp1sk/glyph/internal/ids"
)

// Entity kinds.
const (
	KindFn        = "fn"
	KindPrototype = "prototype"
	KindTypedef   = "typedef"
	KindStruct    = "struct"
	KindUnion     = "union"
	KindEnum      = "enum"
	KindMacro     = "macro"
)

// Storage classes.
const (
	StorageExtern       = "extern"
	StorageStatic       = "static"
	StorageInline       = "inline"
	StorageStaticInline = "static_inline"
)

// Linkage domains.
const (
	LinkageInternal = "internal"
	LinkageExternal = "external"
)

// AnonymousName is the spelling recorded for unnamed records.
const AnonymousName = "<anonymous>"

// Entity is a top-level declaration extracted from a translation unit.
// Start and End are byte offsets into the pre-rewrite source.
type Entity struct {
	Kind    string
	Name    string
	Start   int
	End     int
	Storage string
	DeclSig string
	EffSig  string
	GID     string
	SigID   string
	Linkage string
}

// IncludeEdge is a resolved #include directive. Kind is "quote" or "angle".
type IncludeEdge struct {
	Path string
	Kind string
}

// LinkageOf maps a storage class to its linkage domain.
func LinkageOf(storage string) string {
	if storage == StorageStatic || storage == StorageStaticInline {
		return LinkageInternal
	}
	return LinkageExternal
}

// NormalizeSig collapses all whitespace runs in a signature to single
// spaces. Used for every decl_sig/eff_sig so GIDs are stable across
// formatting differences.
func NormalizeSig(sig string) string {
	return strings.Join(strings.Fields(sig), " ")
}

// SigID derives the canonical signature ID for a (normalised) signature.
func SigID(sig string) string {
	return ids.ShortID("sig", NormalizeSig(sig))
}

// FnGID derives the GID for a function definition or prototype.
func FnGID(isDefinition bool, declSig, effSig, storage, filename string) string {
	tag := "fn"
	if !isDefinition {
		tag = "proto"
	}
	return ids.ShortID(tag, declSig, effSig, storage, filename)
}

// RecordGID derives the GID for a struct/union/enum definition.
func RecordGID(kind, effSig, filename string) string {
	return ids.ShortID(kind, effSig, StorageExtern, filename)
}

// TypedefGID derives the GID for a typedef.
func TypedefGID(effSig, filename string) string {
	return ids.ShortID("typedef", effSig, StorageExtern, filename)
}

// MacroGID derives the GID for a function-like macro.
func MacroGID(name, filename string) string {
	return ids.ShortID("macro", name, filename)
}

// CalleeGID derives the synthetic GID recorded for a call whose target
// could not be resolved to a known definition.
func CalleeGID(name, filename string) string {
	return ids.ShortID("callee", name, StorageExtern, filename)
}
