package ast

import (
	"encoding/json"
	"fmt"
)

// ParseFixture decodes a JSON-encoded AST fixture into a *Module. This is
// the CLI's stand-in for a real parser (spec.md §6): the fixture's
// top-level object carries a "kind" discriminator per node, recursively
// decoded through decodeNode. Unlike internal/jsoncodec (which implements
// Hemlock's own runtime Value serialization by hand), fixture loading is
// test/CLI tooling with no hot path, so it uses encoding/json directly.
func ParseFixture(data []byte) (*Module, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	n, err := decodeNode(raw)
	if err != nil {
		return nil, err
	}
	mod, ok := n.(*Module)
	if !ok {
		return nil, fmt.Errorf("fixture root must be a Module node, got %s", n.NodeKind())
	}
	return mod, nil
}

func decodeNode(raw json.RawMessage) (Node, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode node header: %w", err)
	}

	switch head.Kind {
	case "NullLit":
		var n struct {
			Position
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return &NullLit{Position: n.Position}, nil
	case "BoolLit":
		var n struct {
			Position
			Value bool `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return &BoolLit{Position: n.Position, Value: n.Value}, nil
	case "IntLit":
		var n struct {
			Position
			Value int64 `json:"value"`
			Is32  bool  `json:"is32"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return &IntLit{Position: n.Position, Value: n.Value, Is32: n.Is32}, nil
	case "FloatLit":
		var n struct {
			Position
			Value float64 `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return &FloatLit{Position: n.Position, Value: n.Value}, nil
	case "StringLit":
		var n struct {
			Position
			Value string `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return &StringLit{Position: n.Position, Value: n.Value}, nil
	case "RuneLit":
		var n struct {
			Position
			Value int32 `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return &RuneLit{Position: n.Position, Value: rune(n.Value)}, nil
	case "Identifier":
		var n struct {
			Position
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return &Identifier{Position: n.Position, Name: n.Name}, nil
	case "ArrayLit":
		var n struct {
			Position
			Elements []json.RawMessage `json:"elements"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		elems, err := decodeNodes(n.Elements)
		if err != nil {
			return nil, err
		}
		return &ArrayLit{Position: n.Position, Elements: elems}, nil
	case "ObjectLit":
		var n struct {
			Position
			Keys   []string          `json:"keys"`
			Values []json.RawMessage `json:"values"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		vals, err := decodeNodes(n.Values)
		if err != nil {
			return nil, err
		}
		return &ObjectLit{Position: n.Position, Keys: n.Keys, Values: vals}, nil
	case "BinaryExpr":
		var n struct {
			Position
			Op    string          `json:"op"`
			Left  json.RawMessage `json:"left"`
			Right json.RawMessage `json:"right"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		left, err := decodeNode(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeNode(n.Right)
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Position: n.Position, Op: n.Op, Left: left, Right: right}, nil
	case "UnaryExpr":
		var n struct {
			Position
			Op      string          `json:"op"`
			Operand json.RawMessage `json:"operand"`
			Prefix  bool            `json:"prefix"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		operand, err := decodeNode(n.Operand)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Position: n.Position, Op: n.Op, Operand: operand, Prefix: n.Prefix}, nil
	case "AssignExpr":
		var n struct {
			Position
			Op     string          `json:"op"`
			Target json.RawMessage `json:"target"`
			Value  json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		target, err := decodeNode(n.Target)
		if err != nil {
			return nil, err
		}
		val, err := decodeNode(n.Value)
		if err != nil {
			return nil, err
		}
		return &AssignExpr{Position: n.Position, Op: n.Op, Target: target, Value: val}, nil
	case "CallExpr":
		var n struct {
			Position
			Callee json.RawMessage   `json:"callee"`
			Args   []json.RawMessage `json:"args"`
			Async  bool              `json:"async"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		callee, err := decodeNode(n.Callee)
		if err != nil {
			return nil, err
		}
		args, err := decodeNodes(n.Args)
		if err != nil {
			return nil, err
		}
		return &CallExpr{Position: n.Position, Callee: callee, Args: args, Async: n.Async}, nil
	case "IndexExpr":
		var n struct {
			Position
			Target json.RawMessage `json:"target"`
			Index  json.RawMessage `json:"index"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		target, err := decodeNode(n.Target)
		if err != nil {
			return nil, err
		}
		idx, err := decodeNode(n.Index)
		if err != nil {
			return nil, err
		}
		return &IndexExpr{Position: n.Position, Target: target, Index: idx}, nil
	case "MemberExpr":
		var n struct {
			Position
			Target   json.RawMessage `json:"target"`
			Property string          `json:"property"`
			Optional bool            `json:"optional"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		target, err := decodeNode(n.Target)
		if err != nil {
			return nil, err
		}
		return &MemberExpr{Position: n.Position, Target: target, Property: n.Property, Optional: n.Optional}, nil
	case "NullCoalesceExpr":
		var n struct {
			Position
			Left  json.RawMessage `json:"left"`
			Right json.RawMessage `json:"right"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		left, err := decodeNode(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeNode(n.Right)
		if err != nil {
			return nil, err
		}
		return &NullCoalesceExpr{Position: n.Position, Left: left, Right: right}, nil
	case "AwaitExpr":
		var n struct {
			Position
			Operand json.RawMessage `json:"operand"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		operand, err := decodeNode(n.Operand)
		if err != nil {
			return nil, err
		}
		return &AwaitExpr{Position: n.Position, Operand: operand}, nil
	case "FunctionExpr":
		var n struct {
			Position
			Name       string            `json:"name"`
			Params     []string          `json:"params"`
			ParamTypes []string          `json:"param_types"`
			ByRef      []bool            `json:"by_ref"`
			RestParam  string            `json:"rest_param"`
			Defaults   []json.RawMessage `json:"defaults"`
			Body       json.RawMessage   `json:"body"`
			ReturnType string            `json:"return_type"`
			Async      bool              `json:"async"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		defaults, err := decodeNodes(n.Defaults)
		if err != nil {
			return nil, err
		}
		body, err := decodeNode(n.Body)
		if err != nil {
			return nil, err
		}
		return &FunctionExpr{
			Position: n.Position, Name: n.Name, Params: n.Params, Defaults: defaults, Body: body,
			ParamTypes: n.ParamTypes, ByRef: n.ByRef, RestParam: n.RestParam, ReturnType: n.ReturnType, Async: n.Async,
		}, nil
	case "Block":
		var n struct {
			Position
			Statements []json.RawMessage `json:"statements"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		stmts, err := decodeNodes(n.Statements)
		if err != nil {
			return nil, err
		}
		return &Block{Position: n.Position, Statements: stmts}, nil
	case "VarDecl":
		var n struct {
			Position
			Name    string          `json:"name"`
			Value   json.RawMessage `json:"value"`
			IsConst bool            `json:"is_const"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		val, err := decodeNode(n.Value)
		if err != nil {
			return nil, err
		}
		return &VarDecl{Position: n.Position, Name: n.Name, Value: val, IsConst: n.IsConst}, nil
	case "IfStmt":
		var n struct {
			Position
			Cond json.RawMessage `json:"cond"`
			Then json.RawMessage `json:"then"`
			Else json.RawMessage `json:"else"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		cond, err := decodeNode(n.Cond)
		if err != nil {
			return nil, err
		}
		then, err := decodeNode(n.Then)
		if err != nil {
			return nil, err
		}
		els, err := decodeNode(n.Else)
		if err != nil {
			return nil, err
		}
		return &IfStmt{Position: n.Position, Cond: cond, Then: then, Else: els}, nil
	case "WhileStmt":
		var n struct {
			Position
			Cond json.RawMessage `json:"cond"`
			Body json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		cond, err := decodeNode(n.Cond)
		if err != nil {
			return nil, err
		}
		body, err := decodeNode(n.Body)
		if err != nil {
			return nil, err
		}
		return &WhileStmt{Position: n.Position, Cond: cond, Body: body}, nil
	case "ForStmt":
		var n struct {
			Position
			Init json.RawMessage `json:"init"`
			Cond json.RawMessage `json:"cond"`
			Post json.RawMessage `json:"post"`
			Body json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		init, err := decodeNode(n.Init)
		if err != nil {
			return nil, err
		}
		cond, err := decodeNode(n.Cond)
		if err != nil {
			return nil, err
		}
		post, err := decodeNode(n.Post)
		if err != nil {
			return nil, err
		}
		body, err := decodeNode(n.Body)
		if err != nil {
			return nil, err
		}
		return &ForStmt{Position: n.Position, Init: init, Cond: cond, Post: post, Body: body}, nil
	case "ReturnStmt":
		var n struct {
			Position
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		val, err := decodeNode(n.Value)
		if err != nil {
			return nil, err
		}
		return &ReturnStmt{Position: n.Position, Value: val}, nil
	case "BreakStmt":
		var n struct{ Position }
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return &BreakStmt{Position: n.Position}, nil
	case "ContinueStmt":
		var n struct{ Position }
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return &ContinueStmt{Position: n.Position}, nil
	case "ThrowStmt":
		var n struct {
			Position
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		val, err := decodeNode(n.Value)
		if err != nil {
			return nil, err
		}
		return &ThrowStmt{Position: n.Position, Value: val}, nil
	case "TryStmt":
		var n struct {
			Position
			Try         json.RawMessage `json:"try"`
			CatchName   string          `json:"catch_name"`
			CatchBody   json.RawMessage `json:"catch_body"`
			FinallyBody json.RawMessage `json:"finally_body"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		try, err := decodeNode(n.Try)
		if err != nil {
			return nil, err
		}
		catchBody, err := decodeNode(n.CatchBody)
		if err != nil {
			return nil, err
		}
		finallyBody, err := decodeNode(n.FinallyBody)
		if err != nil {
			return nil, err
		}
		return &TryStmt{Position: n.Position, Try: try, CatchName: n.CatchName, CatchBody: catchBody, FinallyBody: finallyBody}, nil
	case "DeferStmt":
		var n struct {
			Position
			Call json.RawMessage `json:"call"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		call, err := decodeNode(n.Call)
		if err != nil {
			return nil, err
		}
		return &DeferStmt{Position: n.Position, Call: call}, nil
	case "ExprStmt":
		var n struct {
			Position
			Expr json.RawMessage `json:"expr"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		expr, err := decodeNode(n.Expr)
		if err != nil {
			return nil, err
		}
		return &ExprStmt{Position: n.Position, Expr: expr}, nil
	case "Module":
		var n struct {
			Position
			Statements []json.RawMessage `json:"statements"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		stmts, err := decodeNodes(n.Statements)
		if err != nil {
			return nil, err
		}
		return &Module{Position: n.Position, Statements: stmts}, nil
	default:
		return nil, fmt.Errorf("unknown AST node kind %q", head.Kind)
	}
}

func decodeNodes(raws []json.RawMessage) ([]Node, error) {
	if raws == nil {
		return nil, nil
	}
	out := make([]Node, len(raws))
	for i, r := range raws {
		n, err := decodeNode(r)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
