// Package codegen turns an optimized Fragment into two text streams: a
// declaration stream of per-thread and per-lane fields, and the body of
// the function that runs the pipeline.
//
// # Placement
//
// Place assigns every variable a storage class (stack, lane, thread). A
// variable that lives on the stack only exists within one block, so
// anything whose value must survive a jump between blocks, and hence a
// yield, is a field.
//
// The prologue constructs in dependency stages: constants built only from
// constants, then thread fields under the weave_constructed guard, then
// lane fields, then constants that read thread fields. A constant that
// reads a lane field is itself a lane field.
//
// # Backends
//
// With one lane the body is sequential: a labelled compound statement per
// surviving block (weave_blk<N>), gotos between them and a shared
// weave_epilogue label.
//
// With N > 1 lanes the body is a cooperative scheduler. Every lane keeps
// its resume state in weave_state[weave_lane]; lane fields are arrays
// indexed by weave_lane. States 0, 1 and 2 are reserved (enter, terminate,
// dormant), block N resumes at state N+3. A branch records its target
// state and then, by threading hint:
//
//	MustYield   goto weave_yield      rotate to another lane, then dispatch
//	Irrelevant  goto weave_dispatch   dispatch the same lane
//	NeverYield  goto weave_blk<N>     fall straight into the target
//
// Lanes rotate by Rotation. The body returns once every lane has
// terminated and gone dormant.
//
// # Failure
//
// A branch to a block without a dispatch target panics with
// *ir.InvariantError (ir.ErrMissingDispatch). Generate writes nothing to
// its streams in that case.
package codegen
