package candy

import (
	"strconv"
	"strings"
)

// ModuleKind distinguishes a Candy source file from a binary/text asset
// pulled in via `useModule` (spec §3 "Module").
type ModuleKind int

const (
	ModuleKindCode ModuleKind = iota
	ModuleKindAsset
)

func (k ModuleKind) String() string {
	if k == ModuleKindAsset {
		return "asset"
	}
	return "code"
}

// Module identifies a logical compilation unit: a package plus a dotted
// path within it. Every compile error carries a Module reference plus
// a byte Span (spec §3), and every HirID carries its Module.
type Module struct {
	Package string
	Path    []string
	Kind    ModuleKind
}

func NewCodeModule(pkg string, path ...string) Module {
	return Module{Package: pkg, Path: path, Kind: ModuleKindCode}
}

func NewAssetModule(pkg string, path ...string) Module {
	return Module{Package: pkg, Path: path, Kind: ModuleKindAsset}
}

func (m Module) String() string {
	var b strings.Builder
	b.WriteString(m.Package)
	for _, p := range m.Path {
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

func (m Module) Equal(o Module) bool {
	if m.Package != o.Package || m.Kind != o.Kind || len(m.Path) != len(o.Path) {
		return false
	}
	for i := range m.Path {
		if m.Path[i] != o.Path[i] {
			return false
		}
	}
	return true
}

// Position is a byte offset together with the derived line/column,
// matching the teacher's `pos.go` location model.
type Position struct {
	Line, Column, Offset int
}

func (p Position) String() string {
	return strconv.Itoa(p.Line+1) + ":" + strconv.Itoa(p.Column+1)
}

// Span is a half-open byte range `[Start, End)` within a Module's source.
// Every RCST/CST/AST node carries one (spec §3); HIR and MIR nodes do
// not.
type Span struct {
	Start, End Position
}

func NewSpan(start, end Position) Span { return Span{Start: start, End: end} }

func (s Span) String() string {
	if s.Start == s.End {
		return s.Start.String()
	}
	return s.Start.String() + ".." + s.End.String()
}

func (s Span) Len() int { return s.End.Offset - s.Start.Offset }

// CstID is an opaque per-module counter assigned at parse time (spec §3
// "Stable identifiers").
type CstID int

// AstID is module + a dotted-key path derived from source-visible names;
// stable across edits as long as the enclosing named scope doesn't
// change.
type AstID struct {
	Module Module
	Keys   []string
}

func NewAstID(m Module, keys ...string) AstID { return AstID{Module: m, Keys: keys} }

func (id AstID) Child(key string) AstID {
	keys := make([]string, len(id.Keys)+1)
	copy(keys, id.Keys)
	keys[len(id.Keys)] = key
	return AstID{Module: id.Module, Keys: keys}
}

func (id AstID) String() string {
	return id.Module.String() + ":" + strings.Join(id.Keys, ".")
}

// HirID is module + list of keys. The root is the empty-keys ID;
// Parent() drops the last key. PlatformHirID and FuzzerHirID are
// synthetic ancestors that are never present in HIR but can appear as
// the "at-fault" party of a panic (spec §3).
type HirID struct {
	Module Module
	Keys   []string
	synth  string // "" for ordinary IDs, "platform" or "fuzzer" for synthetic ones
}

func NewHirID(m Module, keys ...string) HirID {
	return HirID{Module: m, Keys: append([]string(nil), keys...)}
}

var PlatformHirID = HirID{synth: "platform"}
var FuzzerHirID = HirID{synth: "fuzzer"}

func (id HirID) IsSynthetic() bool { return id.synth != "" }

// IsZero reports whether id is the Go zero value, i.e. was never
// explicitly assigned (a bug in a lowering or optimizer pass rather
// than a legitimate reference to the top-level module, which always
// has a non-empty Module.Package).
func (id HirID) IsZero() bool {
	return id.Module.Package == "" && len(id.Module.Path) == 0 && len(id.Keys) == 0 && id.synth == ""
}

func (id HirID) Parent() HirID {
	if id.synth != "" || len(id.Keys) == 0 {
		return id
	}
	return HirID{Module: id.Module, Keys: id.Keys[:len(id.Keys)-1]}
}

func (id HirID) Child(key string) HirID {
	keys := make([]string, len(id.Keys)+1)
	copy(keys, id.Keys)
	keys[len(id.Keys)] = key
	return HirID{Module: id.Module, Keys: keys}
}

// IsAncestorOf reports whether id is a (non-strict) ancestor of other:
// other's key path starts with id's key path within the same module.
func (id HirID) IsAncestorOf(other HirID) bool {
	if id.synth != "" || other.synth != "" {
		return id.synth == other.synth && id.Module.Equal(other.Module) && len(id.Keys) == len(other.Keys)
	}
	if !id.Module.Equal(other.Module) || len(id.Keys) > len(other.Keys) {
		return false
	}
	for i, k := range id.Keys {
		if other.Keys[i] != k {
			return false
		}
	}
	return true
}

func (id HirID) String() string {
	if id.synth != "" {
		return "<" + id.synth + ">"
	}
	if len(id.Keys) == 0 {
		return id.Module.String()
	}
	return id.Module.String() + ":" + strings.Join(id.Keys, ".")
}
