// Package interpreter binds a parsed graph to a kernel resolver and a fixed
// arena, then executes it.
//
// The lifecycle is New, AllocateTensors, then any number of Invoke calls.
// AllocateTensors places weights in the arena tail, plans activations in the
// head, and runs every kernel's Prepare step. Invoke performs no allocation.
package interpreter
