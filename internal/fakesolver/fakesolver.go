// Package fakesolver provides an in-memory solverapi.Solver backed by
// straightforward constant-folding and a brute-force boolean/bit-vector
// search, for use in this module's own tests. It makes no claim to
// completeness over integers/reals beyond small, concretely-determinable
// formulas — it exists to exercise the encode/runtimedata code paths, not
// to replace a real SMT backend, which spec §1/§6 explicitly keep external.
package fakesolver

import (
	"fmt"

	"github.com/joeycumines/klee-mta-go/solverapi"
)

type exprKind int

const (
	exprConst exprKind = iota
	exprLitBool
	exprLitInt
	exprLitBV
	exprNot
	exprAnd
	exprOr
	exprImplies
	exprEq
	exprLt
	exprPlus
	exprMinus
)

type expr struct {
	kind  exprKind
	sort  solverapi.Sort
	name  string
	width int
	bval  bool
	ival  int64
	kids  []*expr
}

func (e *expr) Sort() solverapi.Sort { return e.sort }

// Solver is an in-memory fake implementing solverapi.Solver. Not safe for
// concurrent use, matching the real contract's single-owner-per-encoder
// assumption (spec §4.9's shared-resource policy).
type Solver struct {
	consts []*expr
	scopes [][]*expr
	model  solverapi.Model
}

// New returns a Solver with an empty root scope.
func New() *Solver {
	return &Solver{scopes: [][]*expr{nil}}
}

func (s *Solver) Push() {
	s.scopes = append(s.scopes, nil)
}

func (s *Solver) Pop() {
	if len(s.scopes) == 1 {
		return
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

func (s *Solver) Add(e solverapi.Expr) {
	top := len(s.scopes) - 1
	s.scopes[top] = append(s.scopes[top], e.(*expr))
}

func (s *Solver) asserted() []*expr {
	var all []*expr
	for _, scope := range s.scopes {
		all = append(all, scope...)
	}
	return all
}

// Check evaluates every asserted expression by brute-force search over the
// free boolean/bit-vector constants referenced. Returns Unknown (rather
// than erroring) if any asserted expression involves an int/real constant,
// since this fake does not implement a general-purpose arithmetic solver.
func (s *Solver) Check() (solverapi.CheckResult, error) {
	asserted := s.asserted()
	if len(asserted) == 0 {
		s.model = solverapi.Model{}
		return solverapi.Sat, nil
	}

	free := collectConsts(asserted)
	for _, c := range free {
		if c.sort == solverapi.IntSort || c.sort == solverapi.RealSort {
			return solverapi.Unknown, nil
		}
	}

	assignment := make(map[string]int64, len(free))
	if searchAssignments(free, 0, assignment, asserted) {
		s.model = renderModel(free, assignment)
		return solverapi.Sat, nil
	}
	s.model = nil
	return solverapi.Unsat, nil
}

func (s *Solver) GetModel() (solverapi.Model, error) {
	if s.model == nil {
		return nil, fmt.Errorf("fakesolver: GetModel called without a preceding Sat Check")
	}
	return s.model, nil
}

func collectConsts(exprs []*expr) []*expr {
	seen := make(map[string]*expr)
	var order []*expr
	var walk func(e *expr)
	walk = func(e *expr) {
		if e.kind == exprConst {
			if _, ok := seen[e.name]; !ok {
				seen[e.name] = e
				order = append(order, e)
			}
			return
		}
		for _, k := range e.kids {
			walk(k)
		}
	}
	for _, e := range exprs {
		walk(e)
	}
	return order
}

func searchAssignments(free []*expr, i int, assignment map[string]int64, asserted []*expr) bool {
	if i == len(free) {
		for _, e := range asserted {
			v, ok := evalBool(e, assignment)
			if !ok || !v {
				return false
			}
		}
		return true
	}
	c := free[i]
	var domain []int64
	switch c.sort {
	case solverapi.BoolSort:
		domain = []int64{0, 1}
	case solverapi.BitVecSort:
		max := int64(1) << uint(min(c.width, 4))
		for v := int64(0); v < max; v++ {
			domain = append(domain, v)
		}
	default:
		domain = []int64{0}
	}
	for _, v := range domain {
		assignment[c.name] = v
		if searchAssignments(free, i+1, assignment, asserted) {
			return true
		}
	}
	delete(assignment, c.name)
	return false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func evalBool(e *expr, assignment map[string]int64) (bool, bool) {
	v, ok := evalValue(e, assignment)
	if !ok {
		return false, false
	}
	return v != 0, true
}

func evalValue(e *expr, assignment map[string]int64) (int64, bool) {
	switch e.kind {
	case exprConst:
		v, ok := assignment[e.name]
		return v, ok
	case exprLitBool:
		if e.bval {
			return 1, true
		}
		return 0, true
	case exprLitInt, exprLitBV:
		return e.ival, true
	case exprNot:
		v, ok := evalValue(e.kids[0], assignment)
		if !ok {
			return 0, false
		}
		if v == 0 {
			return 1, true
		}
		return 0, true
	case exprAnd:
		for _, k := range e.kids {
			v, ok := evalValue(k, assignment)
			if !ok {
				return 0, false
			}
			if v == 0 {
				return 0, true
			}
		}
		return 1, true
	case exprOr:
		for _, k := range e.kids {
			v, ok := evalValue(k, assignment)
			if !ok {
				return 0, false
			}
			if v != 0 {
				return 1, true
			}
		}
		return 0, true
	case exprImplies:
		a, ok := evalValue(e.kids[0], assignment)
		if !ok {
			return 0, false
		}
		if a == 0 {
			return 1, true
		}
		return evalValue(e.kids[1], assignment)
	case exprEq:
		a, ok1 := evalValue(e.kids[0], assignment)
		b, ok2 := evalValue(e.kids[1], assignment)
		if !ok1 || !ok2 {
			return 0, false
		}
		if a == b {
			return 1, true
		}
		return 0, true
	case exprLt:
		a, ok1 := evalValue(e.kids[0], assignment)
		b, ok2 := evalValue(e.kids[1], assignment)
		if !ok1 || !ok2 {
			return 0, false
		}
		if a < b {
			return 1, true
		}
		return 0, true
	case exprPlus:
		a, ok1 := evalValue(e.kids[0], assignment)
		b, ok2 := evalValue(e.kids[1], assignment)
		if !ok1 || !ok2 {
			return 0, false
		}
		return a + b, true
	case exprMinus:
		a, ok1 := evalValue(e.kids[0], assignment)
		b, ok2 := evalValue(e.kids[1], assignment)
		if !ok1 || !ok2 {
			return 0, false
		}
		return a - b, true
	default:
		return 0, false
	}
}

func renderModel(free []*expr, assignment map[string]int64) solverapi.Model {
	m := make(solverapi.Model, len(free))
	for _, c := range free {
		v := assignment[c.name]
		switch c.sort {
		case solverapi.BoolSort:
			m[c.name] = fmt.Sprintf("%v", v != 0)
		default:
			m[c.name] = fmt.Sprintf("%d", v)
		}
	}
	return m
}

func (s *Solver) BoolConst(name string) solverapi.Expr {
	return &expr{kind: exprConst, sort: solverapi.BoolSort, name: name}
}

func (s *Solver) IntConst(name string) solverapi.Expr {
	return &expr{kind: exprConst, sort: solverapi.IntSort, name: name}
}

func (s *Solver) BVConst(name string, width int) solverapi.Expr {
	return &expr{kind: exprConst, sort: solverapi.BitVecSort, name: name, width: width}
}

func (s *Solver) RealConst(name string) solverapi.Expr {
	return &expr{kind: exprConst, sort: solverapi.RealSort, name: name}
}

func (s *Solver) Bool(v bool) solverapi.Expr {
	return &expr{kind: exprLitBool, sort: solverapi.BoolSort, bval: v}
}

func (s *Solver) Int(v int64) solverapi.Expr {
	return &expr{kind: exprLitInt, sort: solverapi.IntSort, ival: v}
}

func (s *Solver) BV(v int64, width int) solverapi.Expr {
	return &expr{kind: exprLitBV, sort: solverapi.BitVecSort, ival: v, width: width}
}

func (s *Solver) Not(a solverapi.Expr) solverapi.Expr {
	return &expr{kind: exprNot, sort: solverapi.BoolSort, kids: []*expr{a.(*expr)}}
}

func (s *Solver) And(exprs ...solverapi.Expr) solverapi.Expr {
	return &expr{kind: exprAnd, sort: solverapi.BoolSort, kids: toKids(exprs)}
}

func (s *Solver) Or(exprs ...solverapi.Expr) solverapi.Expr {
	return &expr{kind: exprOr, sort: solverapi.BoolSort, kids: toKids(exprs)}
}

func (s *Solver) Implies(a, b solverapi.Expr) solverapi.Expr {
	return &expr{kind: exprImplies, sort: solverapi.BoolSort, kids: []*expr{a.(*expr), b.(*expr)}}
}

func (s *Solver) Eq(a, b solverapi.Expr) solverapi.Expr {
	return &expr{kind: exprEq, sort: solverapi.BoolSort, kids: []*expr{a.(*expr), b.(*expr)}}
}

func (s *Solver) Lt(a, b solverapi.Expr) solverapi.Expr {
	return &expr{kind: exprLt, sort: solverapi.BoolSort, kids: []*expr{a.(*expr), b.(*expr)}}
}

func (s *Solver) Plus(a, b solverapi.Expr) solverapi.Expr {
	ae, be := a.(*expr), b.(*expr)
	return &expr{kind: exprPlus, sort: ae.sort, width: ae.width, kids: []*expr{ae, be}}
}

func (s *Solver) Minus(a, b solverapi.Expr) solverapi.Expr {
	ae, be := a.(*expr), b.(*expr)
	return &expr{kind: exprMinus, sort: ae.sort, width: ae.width, kids: []*expr{ae, be}}
}

func toKids(exprs []solverapi.Expr) []*expr {
	kids := make([]*expr, len(exprs))
	for i, e := range exprs {
		kids[i] = e.(*expr)
	}
	return kids
}

var _ solverapi.Solver = (*Solver)(nil)
