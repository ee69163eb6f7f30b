package value

import "github.com/hemlang/hemlock/internal/herr"

// StringObj is an immutable UTF-8 string. The rune slice is built lazily
// on first codepoint-indexed access and cached; byte mutations never
// happen since strings are immutable, so the cache never needs
// invalidation once populated.
type StringObj struct {
	Header
	bytes string
	runes []rune // nil until first rune-indexed access
}

func NewString(s string) Value {
	o := &StringObj{Header: newHeader(), bytes: s}
	return Value{Tag: TagHeap, Heap: o}
}

func (s *StringObj) Kind() string { return "string" }
func (s *StringObj) Bytes() string { return s.bytes }

// RuneAt returns the codepoint at rune index i, building and caching the
// rune slice on first use. Negative indices count from the end.
func (s *StringObj) RuneAt(i int) (rune, bool) {
	s.ensureRunes()
	if i < 0 {
		i += len(s.runes)
	}
	if i < 0 || i >= len(s.runes) {
		return 0, false
	}
	return s.runes[i], true
}

// RuneLen returns the number of Unicode codepoints in s, building and
// caching the rune slice on first use.
func (s *StringObj) RuneLen() int {
	s.ensureRunes()
	return len(s.runes)
}

func (s *StringObj) ensureRunes() {
	if s.runes == nil {
		s.runes = []rune(s.bytes)
	}
}

func (s *StringObj) drop() {}

// BufferObj is a mutable growable byte buffer (the counterpart to the
// immutable StringObj).
type BufferObj struct {
	Header
	Data []byte
}

func NewBuffer(initial []byte) Value {
	o := &BufferObj{Header: newHeader(), Data: initial}
	return Value{Tag: TagHeap, Heap: o}
}

func (b *BufferObj) Kind() string { return "buffer" }
func (b *BufferObj) drop()        {}

// ArrayObj is a growable, ordered array of Values. When TypedArr is set,
// ElemType pins every element to a single tag: the array was constructed
// by NewTypedArray with an explicit element type, and every store
// thereafter must match it.
type ArrayObj struct {
	Header
	Elems    []Value
	ElemType Tag
	TypedArr bool
}

func NewArray(elems []Value) Value {
	o := &ArrayObj{Header: newHeader(), Elems: elems}
	return Value{Tag: TagHeap, Heap: o}
}

// NewTypedArray constructs an array pinned to elemType, validating that
// every initial element already matches it.
func NewTypedArray(elems []Value, elemType Tag) (Value, error) {
	o := &ArrayObj{Header: newHeader(), Elems: elems, ElemType: elemType, TypedArr: true}
	for _, e := range elems {
		if err := o.CheckElem(e); err != nil {
			return Value{}, err
		}
	}
	return Value{Tag: TagHeap, Heap: o}, nil
}

// CheckElem enforces the array's element-type invariant: once an array's
// element type is pinned, every stored value must carry that same tag.
func (a *ArrayObj) CheckElem(v Value) error {
	if !a.TypedArr {
		return nil
	}
	if v.Tag != a.ElemType {
		return herr.New(herr.TypeError, "cannot store %s in %s array", v.TypeName(), Value{Tag: a.ElemType}.TypeName())
	}
	return nil
}

func (a *ArrayObj) Kind() string { return "array" }

func (a *ArrayObj) drop() {
	for _, e := range a.Elems {
		e.Release()
	}
}

// ObjectObj is an insertion-ordered string-keyed map of Values, mirroring
// the environment frame's parallel-slice-plus-hash-index layout so object
// field lookup and environment variable lookup share the same shape.
type ObjectObj struct {
	Header
	Keys   []string
	Values []Value
	index  map[string]int
}

func NewObject() Value {
	o := &ObjectObj{Header: newHeader(), index: make(map[string]int)}
	return Value{Tag: TagHeap, Heap: o}
}

func (o *ObjectObj) Kind() string { return "object" }

func (o *ObjectObj) drop() {
	for _, v := range o.Values {
		v.Release()
	}
}

// Get looks up a field by name.
func (o *ObjectObj) Get(key string) (Value, bool) {
	i, ok := o.index[key]
	if !ok {
		return Value{}, false
	}
	return o.Values[i], true
}

// Set inserts or overwrites a field, releasing any previously stored
// value for the same key. The new value is stored as given, without a
// Retain: the object takes over the caller's reference.
func (o *ObjectObj) Set(key string, v Value) {
	if i, ok := o.index[key]; ok {
		o.Values[i].Release()
		o.Values[i] = v
		return
	}
	o.index[key] = len(o.Keys)
	o.Keys = append(o.Keys, key)
	o.Values = append(o.Values, v)
}

// Delete removes key from the object, releasing its value and shifting
// every key after it down one slot to keep insertion order stable.
func (o *ObjectObj) Delete(key string) bool {
	i, ok := o.index[key]
	if !ok {
		return false
	}
	o.Values[i].Release()
	o.Keys = append(o.Keys[:i], o.Keys[i+1:]...)
	o.Values = append(o.Values[:i], o.Values[i+1:]...)
	delete(o.index, key)
	for k, idx := range o.index {
		if idx > i {
			o.index[k] = idx - 1
		}
	}
	return true
}

// FunctionObj represents a user-defined or bound function. Params and
// Defaults are shared (not copied) between a function and any bound
// method constructed from it, per the evaluator's bound-method contract.
type FunctionObj struct {
	Header
	Name     string
	Params   []string
	Defaults []Node
	Body     Node
	Captured Environment
	BoundSelf *Value // non-nil for a bound method

	// ParamTypes holds per-parameter type annotations ("" for untyped).
	// ByRef marks parameters passed by reference rather than by value.
	// RestParam is the name of the trailing rest parameter, or "" if
	// the function has none. ReturnType is the declared return type
	// annotation ("" for untyped). IsAsync marks the function as a
	// spawn-able async function per spawn(f, args...)'s contract.
	ParamTypes []string
	ByRef      []bool
	RestParam  string
	ReturnType string
	IsAsync    bool
}

// Node is the minimal AST node contract the evaluator walks; it is
// satisfied by internal/ast node types. Declared here (rather than
// imported) to avoid a value<->ast import cycle, since ast.Node values
// are stored directly inside FunctionObj.
type Node interface {
	NodeKind() string
}

// Environment is the minimal lexical-scope contract a FunctionObj
// captures, satisfied by *environment.Frame. Declared here for the same
// import-cycle reason as Node.
type Environment interface {
	EnvID() uint64
}

func NewFunction(name string, params []string, defaults []Node, body Node, captured Environment) Value {
	o := &FunctionObj{Header: newHeader(), Name: name, Params: params, Defaults: defaults, Body: body, Captured: captured}
	return Value{Tag: TagHeap, Heap: o}
}

// NewFunctionFull constructs a FunctionObj with the full gradual-typing
// and async metadata; NewFunction remains for callers with none of it.
func NewFunctionFull(name string, params []string, paramTypes []string, byRef []bool, restParam string, defaults []Node, body Node, returnType string, async bool, captured Environment) Value {
	o := &FunctionObj{
		Header: newHeader(), Name: name, Params: params, Defaults: defaults, Body: body, Captured: captured,
		ParamTypes: paramTypes, ByRef: byRef, RestParam: restParam, ReturnType: returnType, IsAsync: async,
	}
	return Value{Tag: TagHeap, Heap: o}
}

func (f *FunctionObj) Kind() string { return "function" }

func (f *FunctionObj) drop() {
	if f.BoundSelf != nil {
		f.BoundSelf.Release()
	}
}

// Bind returns a bound method sharing f's Params/Defaults/Body/Captured
// arrays, per spec: bound methods share parameter arrays with their
// source function rather than copying them.
func (f *FunctionObj) Bind(self Value) Value {
	bound := &FunctionObj{
		Header:     newHeader(),
		Name:       f.Name,
		Params:     f.Params,
		Defaults:   f.Defaults,
		Body:       f.Body,
		Captured:   f.Captured,
		BoundSelf:  &self,
		ParamTypes: f.ParamTypes,
		ByRef:      f.ByRef,
		RestParam:  f.RestParam,
		ReturnType: f.ReturnType,
		IsAsync:    f.IsAsync,
	}
	return Value{Tag: TagHeap, Heap: bound}
}
