package middleware

import (
	"context"
	"regexp"

	"github.com/parleyflow/parley/pkg/domain"
	"github.com/parleyflow/parley/pkg/ports"
)

type piiStore struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware masks the values of context variables whose names match
// any of the patterns before they reach the underlying store. The engine's
// in-memory session keeps the real values; only the persisted copy is
// masked.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiStore{next: next, patterns: patterns}
	}
}

func (m *piiStore) Save(ctx context.Context, session *domain.Session) error {
	cloned := session.Clone()
	// Clone copies the context map shallowly; nested maps must not alias
	// the engine's live session when masked in place.
	cloned.Context = deepCopyMap(session.Context)
	maskMap(cloned.Context, m.patterns)
	return m.next.Save(ctx, cloned)
}

func (m *piiStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	return m.next.Get(ctx, sessionID)
}

func (m *piiStore) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiStore) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if subMap, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(subMap)
		} else {
			out[k] = v
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = "***"
				break
			}
		}
		if subMap, ok := v.(map[string]any); ok {
			maskMap(subMap, patterns)
		}
	}
}
