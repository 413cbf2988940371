// Package block defines the nodes of a block diagram and a library of
// ready-made blocks.
//
// A block is one of five kinds. Sources depend only on time, functions
// only on their current inputs, transfer blocks integrate continuous state
// and clocked blocks update discrete state at ticks of a [Clock]. Sinks
// consume values and may stop a run.
//
// Behaviour is added through capability interfaces ([Outputter], [Deriver],
// [Updater], [Checker], [Starter], [Stepper], [Finisher], [Clamper]) that
// the engine checks against the block's [Kind] at compile time.
//
// Blocks are built directly with their constructors or by type name through
// [New], which reads a [Spec] against a static factory map.
package block
