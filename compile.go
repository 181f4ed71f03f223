package candy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CompileResult is everything one module's compilation produced: the
// final LIR ready to run, and every diagnostic collected along the way
// (spec §7 "a module always produces a best-effort result plus a list
// of diagnostics, never just an error").
type CompileResult struct {
	Module *Mir
	Lir    *Lir
	Diags  *Diagnostics
}

// Compiler drives one module from source text through every IR down to
// LIR (spec §4 "the pipeline"), resolving `useModule`s against a
// ModuleProvider and caching each module's compiled MIR so a module
// imported from two places is only compiled once.
type Compiler struct {
	Provider ModuleProvider
	Config   *Config
	Debug    bool

	cache map[string]*MirBody
}

func NewCompiler(provider ModuleProvider, cfg *Config) *Compiler {
	return &Compiler{Provider: provider, Config: cfg, cache: map[string]*MirBody{}}
}

// CompileModule runs module through the full pipeline and returns its
// compiled LIR plus every diagnostic raised along the way.
func (c *Compiler) CompileModule(module Module) (*CompileResult, error) {
	diags := &Diagnostics{}
	mir, err := c.compileToMir(module, diags)
	if err != nil {
		return nil, err
	}

	resolver := NewModuleResolver(c.Provider, diags, func(m Module) (*MirBody, error) {
		return c.compileToMirBody(m, diags)
	})
	OptimizeMir(mir, c.Config, resolver, diags, c.Debug)

	lir := LowerMirToLir(mir)
	return &CompileResult{Module: mir, Lir: lir, Diags: diags}, nil
}

func (c *Compiler) compileToMirBody(module Module, diags *Diagnostics) (*MirBody, error) {
	mir, err := c.compileToMir(module, diags)
	if err != nil {
		return nil, err
	}
	return &mir.Body, nil
}

// compileToMir runs the non-module-folding part of the pipeline:
// source -> RCST -> CST -> AST -> HIR -> MIR. Module folding itself
// (splicing a useModule's resolved body in) happens later, in
// OptimizeMir, since it must interleave with the rest of the optimizer
// to reach a fixed point (spec §4.D).
func (c *Compiler) compileToMir(module Module, diags *Diagnostics) (*Mir, error) {
	if cached, ok := c.cache[module.String()]; ok {
		return &Mir{Module: module, Body: *cached}, nil
	}

	src, err := c.Provider.Source(module)
	if err != nil {
		return nil, fmt.Errorf("reading module %s: %w", module, err)
	}

	rcstDoc, parseDiags := ParseModule(module, src)
	diags.errs = append(diags.errs, parseDiags.errs...)

	cstItems := LowerRcstToCst(module, rcstDoc.Items, diags)
	astItems := LowerCstToAst(module, cstItems, diags)
	hir := LowerAstToHir(module, astItems, diags)
	mir := LowerHirToMir(hir)

	c.cache[module.String()] = &mir.Body
	return mir, nil
}

// FilesystemModuleProvider resolves and reads modules as `.candy` files
// (or raw assets) rooted at a directory, the shape a `candy` CLI needs
// (spec §6 "build/run" take a package directory).
type FilesystemModuleProvider struct {
	Root string
}

func NewFilesystemModuleProvider(root string) *FilesystemModuleProvider {
	return &FilesystemModuleProvider{Root: root}
}

func (p *FilesystemModuleProvider) Resolve(from Module, relativePath string) (Module, error) {
	return ResolveModulePath(from, relativePath)
}

func (p *FilesystemModuleProvider) Source(m Module) (string, error) {
	rel := strings.ReplaceAll(strings.Join(m.Path, string(filepath.Separator)), ":", string(filepath.Separator))
	candidates := []string{
		filepath.Join(p.Root, rel+".candy"),
		filepath.Join(p.Root, rel, "_.candy"),
	}
	var lastErr error
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err == nil {
			return string(data), nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("module %s: %w", m, lastErr)
}
