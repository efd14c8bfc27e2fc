package dsl

import (
	"github.com/parleyflow/parley/pkg/domain"
	"github.com/parleyflow/parley/pkg/flow"
)

// Builder manages the flow construction.
type Builder struct {
	def   domain.FlowDefinition
	nodes map[string]*NodeBuilder
	order []string
}

// New creates a flow builder. The first node added becomes the start node
// unless Start overrides it.
func New(id string) *Builder {
	return &Builder{
		def:   domain.FlowDefinition{ID: id},
		nodes: make(map[string]*NodeBuilder),
	}
}

// Name sets the flow's display name.
func (b *Builder) Name(name string) *Builder {
	b.def.Name = name
	return b
}

// Description sets the flow's description.
func (b *Builder) Description(description string) *Builder {
	b.def.Description = description
	return b
}

// Version sets the flow's version string.
func (b *Builder) Version(version string) *Builder {
	b.def.Version = version
	return b
}

// Start sets the entry node explicitly.
func (b *Builder) Start(nodeID string) *Builder {
	b.def.StartNodeID = nodeID
	return b
}

// Add creates a new node in the flow. If the node already exists, it
// returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{node: domain.Node{ID: id}}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Build assembles and validates the flow definition.
func (b *Builder) Build() (*domain.FlowDefinition, error) {
	def := b.def
	def.Nodes = make(map[string]domain.Node, len(b.nodes))
	for id, nb := range b.nodes {
		def.Nodes[id] = nb.node
	}
	if def.StartNodeID == "" && len(b.order) > 0 {
		def.StartNodeID = b.order[0]
	}
	if err := flow.Validate(&def); err != nil {
		return nil, err
	}
	return &def, nil
}
