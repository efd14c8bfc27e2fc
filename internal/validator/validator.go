// Package validator analyzes flow graphs beyond structural integrity:
// reachability from the start node.
package validator

import (
	"sort"

	"github.com/parleyflow/parley/pkg/domain"
)

// UnreachableNodes crawls the flow from its start node across every edge
// the engine can follow and returns the IDs of nodes no path reaches,
// sorted. Unreachable nodes are legal but usually indicate a typo in a
// transition target.
func UnreachableNodes(def *domain.FlowDefinition) []string {
	visited := make(map[string]bool, len(def.Nodes))
	queue := []string{def.StartNodeID}

	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]

		if visited[currentID] {
			continue
		}
		node, ok := def.Nodes[currentID]
		if !ok {
			// Dangling reference; integrity validation reports these.
			continue
		}
		visited[currentID] = true

		for _, target := range edges(node) {
			if target != "" && !visited[target] {
				queue = append(queue, target)
			}
		}
	}

	var unreachable []string
	for id := range def.Nodes {
		if !visited[id] {
			unreachable = append(unreachable, id)
		}
	}
	sort.Strings(unreachable)
	return unreachable
}

// edges lists every node ID the engine can move to from this node.
func edges(node domain.Node) []string {
	var out []string
	for _, t := range node.Transitions {
		out = append(out, t.Target)
	}
	out = append(out, node.DefaultTransition)
	for _, opt := range node.Options {
		out = append(out, opt.Target)
	}
	for _, act := range node.Actions {
		out = append(out, act.OnSuccess, act.OnFailure)
	}
	if node.AIConfig != nil {
		out = append(out, node.AIConfig.ExitNodeID)
	}
	return out
}
