package module

import (
	"testing"

	"github.com/hemlang/hemlock/internal/ast"
)

func TestStaticResolverLoadRegistered(t *testing.T) {
	r := NewStaticResolver()
	mod := &ast.Module{Statements: []ast.Node{
		&ast.ExprStmt{Expr: &ast.IntLit{Value: 1, Is32: true}},
	}}
	r.Register("./util", mod, []string{"./math"})

	var resolver Resolver = r
	got, imports, err := resolver.Load("./util")
	if err != nil {
		t.Fatal(err)
	}
	if got != mod {
		t.Fatal("expected the registered module back by identity")
	}
	if len(imports) != 1 || imports[0] != "./math" {
		t.Fatalf("got imports %v, want [\"./math\"]", imports)
	}
}

func TestStaticResolverLoadUnregistered(t *testing.T) {
	r := NewStaticResolver()
	if _, _, err := r.Load("./missing"); err == nil {
		t.Fatal("expected an error for an unregistered path")
	}
}

func TestStaticResolverTransitiveImports(t *testing.T) {
	r := NewStaticResolver()
	mathMod := &ast.Module{}
	utilMod := &ast.Module{}
	r.Register("./math", mathMod, nil)
	r.Register("./util", utilMod, []string{"./math"})

	_, imports, err := r.Load("./util")
	if err != nil {
		t.Fatal(err)
	}
	for _, path := range imports {
		if _, _, err := r.Load(path); err != nil {
			t.Fatalf("transitive import %q did not resolve: %v", path, err)
		}
	}
}
