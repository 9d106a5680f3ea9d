// Package domain defines the debate session model: the four-phase session
// lifecycle, the fixed eight-slot speaker roster, motion context, and the
// team result aggregation.
//
// Types here are plain values with no I/O. External effects (timers, AI
// collaborators, storage, transport) live in sibling packages and mutate
// sessions only through the operations this package exposes.
package domain
