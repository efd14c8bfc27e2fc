// Package middleware provides composable wrappers around a session store:
// at-rest encryption and PII masking.
package middleware

import "github.com/parleyflow/parley/pkg/ports"

// Middleware wraps a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// Chain applies middlewares right to left, so the first middleware is the
// outermost wrapper.
func Chain(store ports.SessionStore, middlewares ...Middleware) ports.SessionStore {
	for i := len(middlewares) - 1; i >= 0; i-- {
		store = middlewares[i](store)
	}
	return store
}
