// Package ivr is the IVR flow document model: the node type registry, typed
// node configs, the flow document with its mutation operations, the node
// editor, structural validation, the canvas layout and call tracing.
//
// A flow is held as an arena (node id -> node) plus a serialization order.
// The first node in order is the root; logical order always follows the
// next/branch/option pointers, never array position.
package ivr
