package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/parleyflow/parley/pkg/domain"
)

func TestUnreachableNodesAllReachable(t *testing.T) {
	def := &domain.FlowDefinition{
		ID:          "ok",
		StartNodeID: "a",
		Nodes: map[string]domain.Node{
			"a": {ID: "a", Type: domain.NodeMessage, Prompt: "x", DefaultTransition: "b"},
			"b": {ID: "b", Type: domain.NodeMessage, Prompt: "y"},
		},
	}
	assert.Empty(t, UnreachableNodes(def))
}

func TestUnreachableNodesFindsOrphans(t *testing.T) {
	def := &domain.FlowDefinition{
		ID:          "orphans",
		StartNodeID: "a",
		Nodes: map[string]domain.Node{
			"a":        {ID: "a", Type: domain.NodeMessage, Prompt: "x"},
			"orphan":   {ID: "orphan", Type: domain.NodeMessage, Prompt: "y"},
			"orphan-2": {ID: "orphan-2", Type: domain.NodeMessage, Prompt: "z"},
		},
	}
	assert.Equal(t, []string{"orphan", "orphan-2"}, UnreachableNodes(def))
}

func TestUnreachableNodesFollowsEveryEdgeKind(t *testing.T) {
	def := &domain.FlowDefinition{
		ID:          "edges",
		StartNodeID: "start",
		Nodes: map[string]domain.Node{
			"start": {
				ID:   "start",
				Type: domain.NodeCollectInput,
				Transitions: []domain.Transition{
					{Target: "via-transition"},
				},
				DefaultTransition: "menu",
				Actions: []domain.Action{
					{URL: "http://example.com", OnSuccess: "via-success", OnFailure: "via-failure"},
				},
			},
			"menu": {
				ID:   "menu",
				Type: domain.NodeMenu,
				Options: []domain.MenuOption{
					{Value: "a", Label: "A", Target: "via-option"},
				},
			},
			"via-transition": {ID: "via-transition", Type: domain.NodeMessage, Prompt: "t"},
			"via-success":    {ID: "via-success", Type: domain.NodeMessage, Prompt: "s"},
			"via-failure":    {ID: "via-failure", Type: domain.NodeMessage, Prompt: "f"},
			"via-option": {
				ID:   "via-option",
				Type: domain.NodeAIChat,
				AIConfig: &domain.AIConfig{
					SystemPrompt: "p",
					ExitNodeID:   "via-exit",
				},
			},
			"via-exit": {ID: "via-exit", Type: domain.NodeMessage, Prompt: "e"},
		},
	}
	assert.Empty(t, UnreachableNodes(def))
}

func TestUnreachableNodesHandlesCycles(t *testing.T) {
	def := &domain.FlowDefinition{
		ID:          "cycle",
		StartNodeID: "a",
		Nodes: map[string]domain.Node{
			"a": {ID: "a", Type: domain.NodeMessage, Prompt: "x", DefaultTransition: "b"},
			"b": {ID: "b", Type: domain.NodeMessage, Prompt: "y", DefaultTransition: "a"},
		},
	}
	assert.Empty(t, UnreachableNodes(def))
}
