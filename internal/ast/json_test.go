package ast

import "testing"

func TestParseFixtureModule(t *testing.T) {
	src := `{
		"kind": "Module",
		"statements": [
			{
				"kind": "ExprStmt",
				"expr": {
					"kind": "BinaryExpr",
					"op": "+",
					"left": {"kind": "IntLit", "value": 1, "is32": true},
					"right": {"kind": "IntLit", "value": 2, "is32": true}
				}
			}
		]
	}`

	mod, err := ParseFixture([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(mod.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(mod.Statements))
	}
	stmt, ok := mod.Statements[0].(*ExprStmt)
	if !ok {
		t.Fatalf("expected *ExprStmt, got %T", mod.Statements[0])
	}
	bin, ok := stmt.Expr.(*BinaryExpr)
	if !ok {
		t.Fatalf("expected *BinaryExpr, got %T", stmt.Expr)
	}
	if bin.Op != "+" {
		t.Fatalf("expected op '+', got %q", bin.Op)
	}
}

func TestParseFixtureRejectsNonModuleRoot(t *testing.T) {
	_, err := ParseFixture([]byte(`{"kind": "IntLit", "value": 1}`))
	if err == nil {
		t.Fatal("expected an error for a non-Module fixture root")
	}
}

func TestParseFixtureUnknownKind(t *testing.T) {
	_, err := ParseFixture([]byte(`{"kind": "NotARealKind"}`))
	if err == nil {
		t.Fatal("expected an error for an unrecognized node kind")
	}
}
