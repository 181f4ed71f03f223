package candy

import (
	"fmt"
	"strings"
)

// ModuleProvider resolves a `useModule` relative path against the
// module doing the `useModule`, and fetches that module's source text
// (Candy code or a raw asset, per Module.Kind). Mirrors the shape of
// the teacher's `vm_input.go` `Input` interface: one small seam between
// the compiler/VM core and the host environment.
type ModuleProvider interface {
	Resolve(from Module, relativePath string) (Module, error)
	Source(m Module) (string, error)
}

// ResolveModulePath implements Candy's relative `useModule` path syntax:
// a run of leading dots, one per path segment to strip off `from`'s own
// path, followed by the dot-separated segments to descend into. E.g.
// from module `pkg:a.b.c` (Path == ["a","b","c"]), useModule "..d"
// strips 2 segments to reach `pkg:a` and appends "d", landing on
// `pkg:a.d`. At least one leading dot is required — Candy has no way to
// `useModule` an absolute path (spec §4.D "useModule").
func ResolveModulePath(from Module, relativePath string) (Module, error) {
	dots := 0
	for dots < len(relativePath) && relativePath[dots] == '.' {
		dots++
	}
	if dots == 0 {
		return Module{}, fmt.Errorf("useModule path %q must start with at least one `.`", relativePath)
	}
	if dots > len(from.Path) {
		return Module{}, fmt.Errorf("useModule path %q goes above the package root from %s", relativePath, from)
	}

	rest := relativePath[dots:]
	var segments []string
	if rest != "" {
		segments = strings.Split(rest, ".")
		for _, s := range segments {
			if s == "" {
				return Module{}, fmt.Errorf("useModule path %q has an empty segment", relativePath)
			}
		}
	}

	base := append([]string(nil), from.Path[:len(from.Path)-dots]...)
	base = append(base, segments...)
	kind := ModuleKindCode
	if len(segments) > 0 && strings.Contains(segments[len(segments)-1], ":") {
		kind = ModuleKindAsset
	}
	return Module{Package: from.Package, Path: base, Kind: kind}, nil
}

// MapModuleProvider is a fixed in-memory set of modules, used by tests.
type MapModuleProvider struct {
	Sources map[string]string // keyed by Module.String()
}

func NewMapModuleProvider() *MapModuleProvider {
	return &MapModuleProvider{Sources: map[string]string{}}
}

func (p *MapModuleProvider) Add(m Module, source string) {
	p.Sources[m.String()] = source
}

func (p *MapModuleProvider) Resolve(from Module, relativePath string) (Module, error) {
	return ResolveModulePath(from, relativePath)
}

func (p *MapModuleProvider) Source(m Module) (string, error) {
	src, ok := p.Sources[m.String()]
	if !ok {
		return "", fmt.Errorf("module %s not found", m)
	}
	return src, nil
}
