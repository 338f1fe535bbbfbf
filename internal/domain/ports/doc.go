// Package ports defines the interfaces (ports) that external adapters must implement.
// Services depend on these so storage, caching and locking can be swapped or mocked.
package ports
