package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/parleyflow/parley/pkg/domain"
)

// FlowStore implements ports.FlowStore in memory. Definitions are stored
// as JSON so reads decode fresh copies.
type FlowStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewFlowStore creates an empty in-memory flow store.
func NewFlowStore() *FlowStore {
	return &FlowStore{
		data: make(map[string][]byte),
	}
}

// Put upserts a flow definition.
func (s *FlowStore) Put(ctx context.Context, def *domain.FlowDefinition) error {
	raw, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encoding flow %q: %w", def.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[def.ID] = raw
	return nil
}

// Get decodes and returns the stored definition.
func (s *FlowStore) Get(ctx context.Context, flowID string) (*domain.FlowDefinition, error) {
	s.mu.RLock()
	raw, ok := s.data[flowID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrFlowNotFound
	}

	var def domain.FlowDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("decoding flow %q: %w", flowID, err)
	}
	return &def, nil
}

// Delete removes the flow definition.
func (s *FlowStore) Delete(ctx context.Context, flowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, flowID)
	return nil
}

// List returns all flow IDs in deterministic order.
func (s *FlowStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
