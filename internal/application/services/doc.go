// Package services provides the business logic layer for Nexora IVR.
//
// This package contains:
//   - flow reads, saves and deletes with validation, locking and caching (IVRFlowService)
//   - canvas layout and call tracing of stored flows (IVRFlowService)
//   - bounded retry of transient storage failures (RetryPolicy)
//   - event publishing and subscription (EventBus)
//
// ServiceManager wires them together with dependency injection.
package services
