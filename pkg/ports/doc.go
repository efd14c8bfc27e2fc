/*
Package ports defines the driven ports (interfaces) of the Parley engine.

These interfaces decouple the core runtime from external systems, allowing
the engine to work with different storage backends, HTTP stacks and model
providers.

# Key Interfaces

  - SessionStore: persists and loads conversation sessions.
  - FlowStore: persists flow definitions for multi-flow deployments.
  - ActionCaller: executes declarative node actions against external endpoints.
  - Completer: produces model completions for ai_chat nodes.
  - DistributedLocker: coordinates turn processing across replicas.
*/
package ports
