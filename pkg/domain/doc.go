// Package domain contains the pure data model for conversational flows:
// flow definitions, nodes, transitions, validations, actions, sessions and
// the error taxonomy shared by the engine and its adapters.
//
// Nothing in this package performs I/O. Types here are plain Go structs so
// they can be serialized to JSON or YAML by loaders and stores without
// adapter-specific tags leaking into the model.
package domain
