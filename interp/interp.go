// Package interp declares the contract this module expects of a concrete
// single-thread symbolic-execution engine. That engine — loading a program
// image, stepping instructions, maintaining an address space, forking on
// symbolic branches — is explicitly out of scope (spec §1/§6); it is an
// external collaborator the listener pipeline drives through instruction
// callbacks and queries through the primitive operations below.
package interp

import "github.com/joeycumines/klee-mta-go/event"

// Instruction is the subset of a single executed instruction's metadata the
// core needs: what kind of operation it was, where it came from, and (for
// call sites) what it called.
type Instruction struct {
	Opcode     string
	Operands   []int
	File       string
	Line       int
	CalleeName string
}

// State is an opaque handle to the Interpreter's notion of "the currently
// executing program state" — the core never looks inside it, only passes it
// back to Interpreter methods.
type State interface {
	// ThreadID reports which simulated thread this state belongs to.
	ThreadID() int
}

// MemoryObject names a memory location the Interpreter resolved for a
// memory operation (load/store), opaque to the core beyond its name.
type MemoryObject interface {
	Name() string
}

// Interpreter is the contract consumed by the listener pipeline (spec §6):
// lifecycle callbacks driven once per executed instruction, plus primitive
// operations the listeners call while mirror-executing synchronization
// calls and memory accesses.
type Interpreter interface {
	// BeforeMain is invoked once, before the program's entry point runs.
	BeforeMain(state State, function string, argv MemoryObject, argc int, envp MemoryObject)
	// BeforeExecuteInstruction is invoked immediately before ki executes.
	BeforeExecuteInstruction(state State, ki *Instruction)
	// AfterExecuteInstruction is invoked immediately after ki executes.
	AfterExecuteInstruction(state State, ki *Instruction)
	// ExecutionFailed is invoked when ki could not be executed (e.g. an
	// unresolved symbolic address).
	ExecutionFailed(state State, ki *Instruction)

	// Eval returns the symbolic value of the operandIndex-th operand of the
	// instruction currently being processed for state.
	Eval(state State, operandIndex int) event.Expr
	// BindLocal binds a value to ki's result register in state.
	BindLocal(state State, ki *Instruction, value event.Expr)
	// BindArgument binds a value to the argIndex-th formal parameter of the
	// function currently being entered in state.
	BindArgument(state State, argIndex int, value event.Expr)
	// ExecuteMemoryOperation performs a load (isWrite == false) or store
	// (isWrite == true) against mo, returning the loaded value (nil for a
	// store).
	ExecuteMemoryOperation(state State, mo MemoryObject, isWrite bool, value event.Expr) event.Expr
	// GetMemoryObject resolves the memory object an instruction's operand
	// refers to.
	GetMemoryObject(state State, ki *Instruction, operandIndex int) MemoryObject
	// ResolveExact resolves mo to a single concrete address, for
	// operations (like lock/unlock) that require one.
	ResolveExact(state State, mo MemoryObject) (string, bool)
	// ForkState splits state into two: one where condition holds, one
	// where its negation holds. Returns both states (either may be nil if
	// that branch is infeasible).
	ForkState(state State, condition event.Expr) (ifTrue, ifFalse State)
}
