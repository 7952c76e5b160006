// Package solverapi declares the contract this tool expects of a background
// SMT solver. The solver itself is explicitly out of scope (spec §1/§6): it
// is an external collaborator this module only ever talks to through this
// interface. internal/fakesolver provides the in-memory implementation used
// by this module's own tests.
package solverapi

// CheckResult is the outcome of a solver Check call. Modeled as an explicit
// enum rather than letting a solver exception or panic cross the boundary,
// per the error-handling design's call for an explicit result type around
// every solver check.
type CheckResult int

const (
	// Unknown means the solver could not determine satisfiability (timeout,
	// incompleteness, or an internal solver error).
	Unknown CheckResult = iota
	// Sat means the solver found a satisfying model.
	Sat
	// Unsat means no satisfying model exists.
	Unsat
)

func (r CheckResult) String() string {
	switch r {
	case Sat:
		return "SAT"
	case Unsat:
		return "UNSAT"
	default:
		return "UNKNOWN"
	}
}

// Sort names the theory an Expr is constructed in.
type Sort int

const (
	// BoolSort is the boolean theory.
	BoolSort Sort = iota
	// BitVecSort is the fixed-width bit-vector theory.
	BitVecSort
	// IntSort is the unbounded integer theory.
	IntSort
	// RealSort is the real-number theory.
	RealSort
)

// Expr is an opaque solver-side expression term. Concrete values are
// produced and consumed only through a Solver's builder methods and push/
// pop/add/check/get_model calls; the core never inspects an Expr's
// internals.
type Expr interface {
	// Sort reports the theory this expression was built in.
	Sort() Sort
}

// Model maps a solver constant name to its value in a satisfying
// assignment, as a solver-native string (the exact literal syntax the
// underlying solver reports, e.g. "#x000000000000002a" for a 64-bit
// bit-vector or "42" for an integer) — callers that need typed values parse
// this themselves via the Sort they requested the constant in.
type Model map[string]string

// Solver is the contract this module requires of a background SMT solver:
// push/pop-disciplined scopes, assertion, satisfiability checking, and
// model extraction, plus builders for the expression sorts the encoder
// needs (spec §6).
type Solver interface {
	// Push opens a new assertion scope.
	Push()
	// Pop discards every assertion added since the matching Push.
	Pop()
	// Add asserts expr in the current scope.
	Add(expr Expr)
	// Check determines satisfiability of every asserted expression still in
	// scope.
	Check() (CheckResult, error)
	// GetModel returns a satisfying assignment. Only valid to call
	// immediately after a Check that returned Sat.
	GetModel() (Model, error)

	// BoolConst returns (creating if necessary) a named boolean constant.
	BoolConst(name string) Expr
	// IntConst returns a named integer constant.
	IntConst(name string) Expr
	// BVConst returns a named bit-vector constant of the given width.
	BVConst(name string, width int) Expr
	// RealConst returns a named real constant.
	RealConst(name string) Expr

	// Bool returns a boolean literal.
	Bool(v bool) Expr
	// Int returns an integer literal.
	Int(v int64) Expr
	// BV returns a bit-vector literal of the given width.
	BV(v int64, width int) Expr

	// Not, And, Or, Implies, Eq, Lt build formula combinators over
	// previously built expressions.
	Not(a Expr) Expr
	And(exprs ...Expr) Expr
	Or(exprs ...Expr) Expr
	Implies(a, b Expr) Expr
	Eq(a, b Expr) Expr
	Lt(a, b Expr) Expr

	// Plus and Minus build bit-vector/integer arithmetic over two
	// expressions of matching sort, used by the memory-model order
	// variables.
	Plus(a, b Expr) Expr
	Minus(a, b Expr) Expr
}
