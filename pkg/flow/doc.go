// Package flow loads and validates conversational flow definitions.
//
// Loading is strict: documents are decoded with unknown-field detection and
// then checked for structural integrity. A definition either comes back
// fully usable or the load fails with a *domain.IntegrityError listing
// every violation found, so authors fix a flow in a single pass.
package flow
