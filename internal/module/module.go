// Package module defines the resolver contract that turns an import path
// into the AST of the module it names. This package ships a single-file
// in-memory resolver only, sufficient for the evaluator's own tests; a
// real resolver (package paths, @stdlib/... traversal restriction) is an
// out-of-scope external collaborator.
package module

import (
	"fmt"

	"github.com/hemlang/hemlock/internal/ast"
)

// Resolver loads the AST for an import path and reports the further
// paths that module itself imports, so a caller can resolve transitively.
type Resolver interface {
	Load(path string) (*ast.Module, []string, error)
}

// StaticResolver resolves import paths against a fixed in-memory map,
// useful for driving evaluator tests without a real module loader.
type StaticResolver struct {
	modules map[string]*ast.Module
	imports map[string][]string
}

// NewStaticResolver builds a resolver over pre-parsed modules.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{
		modules: make(map[string]*ast.Module),
		imports: make(map[string][]string),
	}
}

// Register adds a module and the import paths it references.
func (r *StaticResolver) Register(path string, mod *ast.Module, imports []string) {
	r.modules[path] = mod
	r.imports[path] = imports
}

func (r *StaticResolver) Load(path string) (*ast.Module, []string, error) {
	mod, ok := r.modules[path]
	if !ok {
		return nil, nil, fmt.Errorf("module %q not registered", path)
	}
	return mod, r.imports[path], nil
}
