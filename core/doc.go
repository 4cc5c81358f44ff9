// Package core defines the shared primitives of the streaming sales
// assistant: the typed event union emitted during a turn, the ordered
// event channel connecting producer and consumer, the activity listener
// contract the agent capability reports through, conversation sessions,
// and the opaque capability interface itself.
package core
