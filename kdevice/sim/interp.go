package sim

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"strconv"
)

var (
	ErrEntryNotFound     = errors.New("compute entry point not found")
	ErrUnsupportedSyntax = errors.New("unsupported compute syntax")
)

// A compute routine is a Go function over float32 scalars: parameters are
// the input tiles' elements, named results the output tiles' elements. It is
// compiled once into closures over a slot array and run per element.
type (
	stmt func(*env) bool // reports whether the function returned
	expr func(*env) float32
	cond func(*env) bool
)

type env struct {
	slots  []float32
	inputs int
}

func (e *env) setInput(i int, v float32) {
	e.slots[i] = v
}

func (e *env) output(i int) float32 {
	return e.slots[e.inputs+i]
}

type kernelFunc struct {
	inputs  int
	outputs int
	slots   int
	body    []stmt
}

func (k *kernelFunc) newEnv() *env {
	return &env{slots: make([]float32, k.slots), inputs: k.inputs}
}

// run evaluates the function for the inputs set in e. Results and locals
// start at zero for every element.
func (k *kernelFunc) run(e *env) {
	clear(e.slots[k.inputs:])
	for _, s := range k.body {
		if s(e) {
			return
		}
	}
}

// compiler resolves names through a stack of block scopes. Every declaration
// gets a fresh slot, so shadowed bindings keep their own storage.
type compiler struct {
	fset    *token.FileSet
	scopes  []map[string]int
	slots   int
	results []int
}

func compileKernel(source, entry string) (*kernelFunc, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "compute.go", source, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parse compute source: %w", err)
	}

	var fn *ast.FuncDecl
	for _, decl := range file.Decls {
		if f, ok := decl.(*ast.FuncDecl); ok && f.Name.Name == entry {
			fn = f
			break
		}
	}
	if fn == nil || fn.Body == nil {
		return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, entry)
	}

	c := &compiler{fset: fset}
	k := &kernelFunc{}

	// Parameters, results and the top level of the body share one block.
	c.push()
	for _, field := range fn.Type.Params.List {
		if err := c.checkType(field); err != nil {
			return nil, err
		}
		if len(field.Names) == 0 {
			return nil, fmt.Errorf("%w: parameters of %s must be named", ErrUnsupportedSyntax, entry)
		}
		for _, name := range field.Names {
			if _, err := c.declareNew(name); err != nil {
				return nil, err
			}
			k.inputs++
		}
	}
	if fn.Type.Results != nil {
		for _, field := range fn.Type.Results.List {
			if err := c.checkType(field); err != nil {
				return nil, err
			}
			if len(field.Names) == 0 {
				return nil, fmt.Errorf("%w: results of %s must be named", ErrUnsupportedSyntax, entry)
			}
			for _, name := range field.Names {
				slot, err := c.declareNew(name)
				if err != nil {
					return nil, err
				}
				c.results = append(c.results, slot)
				k.outputs++
			}
		}
	}

	k.body, err = c.block(fn.Body.List)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", entry, err)
	}
	k.slots = c.slots
	return k, nil
}

func (c *compiler) checkType(field *ast.Field) error {
	if id, ok := field.Type.(*ast.Ident); ok && id.Name == "float32" {
		return nil
	}
	return c.unsupported(field.Type)
}

func (c *compiler) push() {
	c.scopes = append(c.scopes, make(map[string]int))
}

func (c *compiler) pop() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

// local returns the slot of name if it is declared in the innermost block.
func (c *compiler) local(name string) (int, bool) {
	slot, ok := c.scopes[len(c.scopes)-1][name]
	return slot, ok
}

func (c *compiler) declare(name string) int {
	slot := c.slots
	c.slots++
	if name != "_" {
		c.scopes[len(c.scopes)-1][name] = slot
	}
	return slot
}

// declareNew declares id in the innermost block, failing if it is already
// declared there.
func (c *compiler) declareNew(id *ast.Ident) (int, error) {
	if _, ok := c.local(id.Name); ok && id.Name != "_" {
		return 0, fmt.Errorf("%s redeclared in this block at %s", id.Name, c.fset.Position(id.Pos()))
	}
	return c.declare(id.Name), nil
}

func (c *compiler) lookup(id *ast.Ident) (int, error) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if slot, ok := c.scopes[i][id.Name]; ok {
			return slot, nil
		}
	}
	return 0, fmt.Errorf("undefined: %s at %s", id.Name, c.fset.Position(id.Pos()))
}

func (c *compiler) unsupported(n ast.Node) error {
	return fmt.Errorf("%w: %T at %s", ErrUnsupportedSyntax, n, c.fset.Position(n.Pos()))
}

func (c *compiler) block(list []ast.Stmt) ([]stmt, error) {
	out := make([]stmt, 0, len(list))
	for _, s := range list {
		compiled, err := c.stmt(s)
		if err != nil {
			return nil, err
		}
		if compiled != nil {
			out = append(out, compiled)
		}
	}
	return out, nil
}

func runBlock(body []stmt) stmt {
	return func(e *env) bool {
		for _, s := range body {
			if s(e) {
				return true
			}
		}
		return false
	}
}

func (c *compiler) stmt(s ast.Stmt) (stmt, error) {
	switch s := s.(type) {
	case *ast.AssignStmt:
		return c.assign(s)

	case *ast.IncDecStmt:
		id, ok := s.X.(*ast.Ident)
		if !ok {
			return nil, c.unsupported(s.X)
		}
		slot, err := c.lookup(id)
		if err != nil {
			return nil, err
		}
		delta := float32(1)
		if s.Tok == token.DEC {
			delta = -1
		}
		return func(e *env) bool {
			e.slots[slot] += delta
			return false
		}, nil

	case *ast.DeclStmt:
		return c.varDecl(s)

	case *ast.ReturnStmt:
		if len(s.Results) == 0 {
			return func(*env) bool { return true }, nil
		}
		if len(s.Results) != len(c.results) {
			return nil, fmt.Errorf("%w: return with %d values, function has %d results",
				ErrUnsupportedSyntax, len(s.Results), len(c.results))
		}
		values, err := c.exprs(s.Results)
		if err != nil {
			return nil, err
		}
		return c.store(c.results, values, true), nil

	case *ast.IfStmt:
		return c.ifStmt(s)

	case *ast.BlockStmt:
		c.push()
		defer c.pop()
		body, err := c.block(s.List)
		if err != nil {
			return nil, err
		}
		return runBlock(body), nil

	case *ast.EmptyStmt:
		return nil, nil

	default:
		return nil, c.unsupported(s)
	}
}

func (c *compiler) assign(s *ast.AssignStmt) (stmt, error) {
	if s.Tok == token.ASSIGN || s.Tok == token.DEFINE {
		if len(s.Lhs) != len(s.Rhs) {
			return nil, fmt.Errorf("%w: assignment of %d values to %d targets at %s",
				ErrUnsupportedSyntax, len(s.Rhs), len(s.Lhs), c.fset.Position(s.Pos()))
		}
		values, err := c.exprs(s.Rhs)
		if err != nil {
			return nil, err
		}
		slots := make([]int, len(s.Lhs))
		declared := 0
		for i, lhs := range s.Lhs {
			id, ok := lhs.(*ast.Ident)
			if !ok {
				return nil, c.unsupported(lhs)
			}
			switch {
			case id.Name == "_":
				slots[i] = -1
			case s.Tok == token.DEFINE:
				// := only redeclares names already declared in the same block.
				if slot, ok := c.local(id.Name); ok {
					slots[i] = slot
				} else {
					slots[i] = c.declare(id.Name)
					declared++
				}
			default:
				if slots[i], err = c.lookup(id); err != nil {
					return nil, err
				}
			}
		}
		if s.Tok == token.DEFINE && declared == 0 {
			return nil, fmt.Errorf("no new variables on left side of := at %s", c.fset.Position(s.Pos()))
		}
		return c.store(slots, values, false), nil
	}

	op, ok := map[token.Token]token.Token{
		token.ADD_ASSIGN: token.ADD,
		token.SUB_ASSIGN: token.SUB,
		token.MUL_ASSIGN: token.MUL,
		token.QUO_ASSIGN: token.QUO,
	}[s.Tok]
	if !ok || len(s.Lhs) != 1 || len(s.Rhs) != 1 {
		return nil, c.unsupported(s)
	}
	id, ok := s.Lhs[0].(*ast.Ident)
	if !ok {
		return nil, c.unsupported(s.Lhs[0])
	}
	slot, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	rhs, err := c.expr(s.Rhs[0])
	if err != nil {
		return nil, err
	}
	current := func(e *env) float32 { return e.slots[slot] }
	value := arith(op, current, rhs)
	return func(e *env) bool {
		e.slots[slot] = value(e)
		return false
	}, nil
}

// store evaluates all values before assigning any slot; slot -1 discards.
func (c *compiler) store(slots []int, values []expr, returns bool) stmt {
	if len(slots) == 1 {
		slot, value := slots[0], values[0]
		return func(e *env) bool {
			v := value(e)
			if slot >= 0 {
				e.slots[slot] = v
			}
			return returns
		}
	}
	tmp := make([]float32, len(values))
	return func(e *env) bool {
		for i, value := range values {
			tmp[i] = value(e)
		}
		for i, slot := range slots {
			if slot >= 0 {
				e.slots[slot] = tmp[i]
			}
		}
		return returns
	}
}

func (c *compiler) varDecl(s *ast.DeclStmt) (stmt, error) {
	gen, ok := s.Decl.(*ast.GenDecl)
	if !ok || (gen.Tok != token.VAR && gen.Tok != token.CONST) {
		return nil, c.unsupported(s)
	}

	var body []stmt
	for _, spec := range gen.Specs {
		vs := spec.(*ast.ValueSpec)
		if vs.Type != nil {
			if id, ok := vs.Type.(*ast.Ident); !ok || id.Name != "float32" {
				return nil, c.unsupported(vs.Type)
			}
		}
		if len(vs.Values) != 0 && len(vs.Values) != len(vs.Names) {
			return nil, c.unsupported(vs)
		}

		values := make([]expr, len(vs.Names))
		for i := range vs.Names {
			values[i] = func(*env) float32 { return 0 }
			if len(vs.Values) > 0 {
				v, err := c.expr(vs.Values[i])
				if err != nil {
					return nil, err
				}
				values[i] = v
			}
		}
		slots := make([]int, len(vs.Names))
		for i, name := range vs.Names {
			slot, err := c.declareNew(name)
			if err != nil {
				return nil, err
			}
			slots[i] = slot
		}
		body = append(body, c.store(slots, values, false))
	}
	return runBlock(body), nil
}

func (c *compiler) ifStmt(s *ast.IfStmt) (stmt, error) {
	// The if statement is its own block; the init binds there.
	c.push()
	defer c.pop()

	var init stmt
	if s.Init != nil {
		var err error
		if init, err = c.stmt(s.Init); err != nil {
			return nil, err
		}
	}
	test, err := c.cond(s.Cond)
	if err != nil {
		return nil, err
	}
	thenStmt, err := c.stmt(s.Body)
	if err != nil {
		return nil, err
	}
	elseStmt := func(*env) bool { return false }
	if s.Else != nil {
		if elseStmt, err = c.stmt(s.Else); err != nil {
			return nil, err
		}
	}

	return func(e *env) bool {
		if init != nil && init(e) {
			return true
		}
		if test(e) {
			return thenStmt(e)
		}
		return elseStmt(e)
	}, nil
}

func (c *compiler) exprs(list []ast.Expr) ([]expr, error) {
	out := make([]expr, len(list))
	for i, x := range list {
		compiled, err := c.expr(x)
		if err != nil {
			return nil, err
		}
		out[i] = compiled
	}
	return out, nil
}

func (c *compiler) expr(x ast.Expr) (expr, error) {
	switch x := x.(type) {
	case *ast.BasicLit:
		if x.Kind != token.INT && x.Kind != token.FLOAT {
			return nil, c.unsupported(x)
		}
		f, err := strconv.ParseFloat(x.Value, 32)
		if err != nil {
			return nil, fmt.Errorf("literal %s at %s: %w", x.Value, c.fset.Position(x.Pos()), err)
		}
		v := float32(f)
		return func(*env) float32 { return v }, nil

	case *ast.Ident:
		slot, err := c.lookup(x)
		if err != nil {
			return nil, err
		}
		return func(e *env) float32 { return e.slots[slot] }, nil

	case *ast.ParenExpr:
		return c.expr(x.X)

	case *ast.UnaryExpr:
		operand, err := c.expr(x.X)
		if err != nil {
			return nil, err
		}
		switch x.Op {
		case token.SUB:
			return func(e *env) float32 { return -operand(e) }, nil
		case token.ADD:
			return operand, nil
		}
		return nil, c.unsupported(x)

	case *ast.BinaryExpr:
		switch x.Op {
		case token.ADD, token.SUB, token.MUL, token.QUO:
		default:
			return nil, c.unsupported(x)
		}
		a, err := c.expr(x.X)
		if err != nil {
			return nil, err
		}
		b, err := c.expr(x.Y)
		if err != nil {
			return nil, err
		}
		return arith(x.Op, a, b), nil

	case *ast.CallExpr:
		return c.call(x)

	default:
		return nil, c.unsupported(x)
	}
}

func arith(op token.Token, a, b expr) expr {
	switch op {
	case token.ADD:
		return func(e *env) float32 { return a(e) + b(e) }
	case token.SUB:
		return func(e *env) float32 { return a(e) - b(e) }
	case token.MUL:
		return func(e *env) float32 { return a(e) * b(e) }
	default:
		return func(e *env) float32 { return a(e) / b(e) }
	}
}

var unaryBuiltins = map[string]func(float32) float32{
	"abs":     func(v float32) float32 { return float32(math.Abs(float64(v))) },
	"sqrt":    func(v float32) float32 { return float32(math.Sqrt(float64(v))) },
	"exp":     func(v float32) float32 { return float32(math.Exp(float64(v))) },
	"relu":    func(v float32) float32 { return max(v, 0) },
	"float32": func(v float32) float32 { return v },
}

var foldBuiltins = map[string]func(a, b float32) float32{
	"min": func(a, b float32) float32 { return min(a, b) },
	"max": func(a, b float32) float32 { return max(a, b) },
}

func (c *compiler) call(x *ast.CallExpr) (expr, error) {
	id, ok := x.Fun.(*ast.Ident)
	if !ok {
		return nil, c.unsupported(x.Fun)
	}
	args, err := c.exprs(x.Args)
	if err != nil {
		return nil, err
	}

	if fn, ok := unaryBuiltins[id.Name]; ok {
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: %s takes 1 argument, got %d", ErrUnsupportedSyntax, id.Name, len(args))
		}
		arg := args[0]
		return func(e *env) float32 { return fn(arg(e)) }, nil
	}

	if fn, ok := foldBuiltins[id.Name]; ok {
		if len(args) == 0 {
			return nil, fmt.Errorf("%w: %s needs at least 1 argument", ErrUnsupportedSyntax, id.Name)
		}
		return func(e *env) float32 {
			v := args[0](e)
			for _, arg := range args[1:] {
				v = fn(v, arg(e))
			}
			return v
		}, nil
	}

	return nil, fmt.Errorf("%w: unknown function %s at %s", ErrUnsupportedSyntax, id.Name, c.fset.Position(id.Pos()))
}

func (c *compiler) cond(x ast.Expr) (cond, error) {
	switch x := x.(type) {
	case *ast.ParenExpr:
		return c.cond(x.X)

	case *ast.Ident:
		switch x.Name {
		case "true":
			return func(*env) bool { return true }, nil
		case "false":
			return func(*env) bool { return false }, nil
		}
		return nil, c.unsupported(x)

	case *ast.UnaryExpr:
		if x.Op != token.NOT {
			return nil, c.unsupported(x)
		}
		inner, err := c.cond(x.X)
		if err != nil {
			return nil, err
		}
		return func(e *env) bool { return !inner(e) }, nil

	case *ast.BinaryExpr:
		if x.Op == token.LAND || x.Op == token.LOR {
			a, err := c.cond(x.X)
			if err != nil {
				return nil, err
			}
			b, err := c.cond(x.Y)
			if err != nil {
				return nil, err
			}
			if x.Op == token.LAND {
				return func(e *env) bool { return a(e) && b(e) }, nil
			}
			return func(e *env) bool { return a(e) || b(e) }, nil
		}

		a, err := c.expr(x.X)
		if err != nil {
			return nil, err
		}
		b, err := c.expr(x.Y)
		if err != nil {
			return nil, err
		}
		switch x.Op {
		case token.LSS:
			return func(e *env) bool { return a(e) < b(e) }, nil
		case token.GTR:
			return func(e *env) bool { return a(e) > b(e) }, nil
		case token.LEQ:
			return func(e *env) bool { return a(e) <= b(e) }, nil
		case token.GEQ:
			return func(e *env) bool { return a(e) >= b(e) }, nil
		case token.EQL:
			return func(e *env) bool { return a(e) == b(e) }, nil
		case token.NEQ:
			return func(e *env) bool { return a(e) != b(e) }, nil
		}
		return nil, c.unsupported(x)

	default:
		return nil, c.unsupported(x)
	}
}
