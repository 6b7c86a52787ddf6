package kern

// ArgumentID names a loop offset slot in the kernel Data. Each For statement
// binds the offset of one argument; lambda bodies read offsets back by ID.
type ArgumentID int

// ParamID names a loop counter slot in the kernel Data, bound by ForICount
// statements alongside the offset.
type ParamID int

// StatementKind identifies a node variant of the kernel statement tree.
type StatementKind int

const (
	// StmtFor loops over a segment, binding the iterate to an argument offset
	StmtFor StatementKind = iota
	// StmtForICount loops like StmtFor and additionally binds the loop count
	// to a param slot
	StmtForICount
	// StmtLambda invokes one of the kernel's lambda bodies
	StmtLambda
	// StmtKernel marks a launch boundary and carries the launch config
	StmtKernel
)

// LaunchConfig controls how a kernel statement submits its launch.
type LaunchConfig struct {
	// Async returns from the launch before device completion; the caller owns
	// the later synchronization point
	Async bool
	// NonTrivial stages the kernel Data in a private heap copy instead of
	// capturing it by value. The launch then synchronizes internally before
	// the staged copy is dropped, regardless of Async.
	NonTrivial bool
}

// Sync is the default blocking launch configuration
var Sync = LaunchConfig{}

// Async returns from launches immediately
var Async = LaunchConfig{Async: true}

// Statement is one immutable node of a kernel tree. Children form an ordered
// statement list; their order defines the lexical nesting that the dimension
// calculator and executors map onto the hardware hierarchy. Build trees with
// the constructor functions; a Statement should not be mutated after
// construction.
type Statement struct {
	Kind     StatementKind
	Arg      ArgumentID
	Param    ParamID
	Policy   Policy
	Body     int // lambda index for StmtLambda
	Config   LaunchConfig
	Children []Statement
}

// For creates a loop statement over the segment bound to arg, executing the
// enclosed statements once per claimed iterate under the given policy.
func For(arg ArgumentID, pol Policy, enclosed ...Statement) Statement {
	return Statement{
		Kind:     StmtFor,
		Arg:      arg,
		Policy:   pol,
		Children: enclosed,
	}
}

// ForICount creates a loop statement that binds both the iterate offset (to
// arg) and the loop count (to param).
func ForICount(arg ArgumentID, param ParamID, pol Policy, enclosed ...Statement) Statement {
	return Statement{
		Kind:     StmtForICount,
		Arg:      arg,
		Param:    param,
		Policy:   pol,
		Children: enclosed,
	}
}

// Lambda creates a body-invocation statement referencing the kernel's
// lambda at index body.
func Lambda(body int) Statement {
	return Statement{Kind: StmtLambda, Body: body}
}

// KernelLaunch wraps enclosed statements in a launch boundary. The wrapper
// computes launch dimensions from the enclosed tree and current segment
// lengths, then issues one device launch per Run invocation.
func KernelLaunch(cfg LaunchConfig, enclosed ...Statement) Statement {
	return Statement{
		Kind:     StmtKernel,
		Config:   cfg,
		Children: enclosed,
	}
}
