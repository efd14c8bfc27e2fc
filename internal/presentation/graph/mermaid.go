// Package graph renders flow definitions as Mermaid flowcharts.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/parleyflow/parley/pkg/domain"
)

// Overlay carries per-session state to highlight on top of the static
// graph.
type Overlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart (graph TD) for a flow
// definition. Shapes carry meaning:
//   - start node: ((circle))
//   - collect_input, menu, process_media: [/parallelogram/] (waits for input)
//   - ai_chat: [[subroutine]]
//   - message: [rectangle]
//
// Nodes are emitted in sorted ID order so output is stable.
func GenerateMermaid(def *domain.FlowDefinition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	ids := make([]string, 0, len(def.Nodes))
	for id := range def.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		node := def.Nodes[id]
		safeID := sanitizeMermaidID(id)

		opener, closer := "[", "]"
		switch {
		case id == def.StartNodeID:
			opener, closer = "((", "))"
		case node.Type == domain.NodeAIChat:
			opener, closer = "[[", "]]"
		case node.WaitsForInput():
			opener, closer = "[/", "/]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, escapeLabel(id), closer))

		for _, t := range node.Transitions {
			arrow := "-->"
			if label := conditionLabel(t.Conditions); label != "" {
				arrow = fmt.Sprintf("-- \"%s\" -->", label)
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, sanitizeMermaidID(t.Target)))
		}

		for _, opt := range node.Options {
			if opt.Target == "" {
				continue
			}
			arrow := fmt.Sprintf("-- \"%s\" -->", escapeLabel(opt.Label))
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, sanitizeMermaidID(opt.Target)))
		}

		if node.DefaultTransition != "" {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeID, sanitizeMermaidID(node.DefaultTransition)))
		}

		// Exit routes from AI chat and action failure handlers render as
		// dotted arrows.
		if node.AIConfig != nil && node.AIConfig.ExitNodeID != "" {
			sb.WriteString(fmt.Sprintf("    %s -. \"exit\" .-> %s\n", safeID, sanitizeMermaidID(node.AIConfig.ExitNodeID)))
		}
		for _, act := range node.Actions {
			if act.OnFailure != "" {
				sb.WriteString(fmt.Sprintf("    %s -. \"%s failed\" .-> %s\n", safeID, escapeLabel(act.Name), sanitizeMermaidID(act.OnFailure)))
			}
			if act.OnSuccess != "" {
				sb.WriteString(fmt.Sprintf("    %s -. \"%s ok\" .-> %s\n", safeID, escapeLabel(act.Name), sanitizeMermaidID(act.OnSuccess)))
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for contrast regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visited := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if safeID != "" && !visited[safeID] {
				visited[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}
		if overlay.CurrentNode != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode)))
		}
	}

	return sb.String()
}

func conditionLabel(conds []domain.Condition) string {
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		switch c.Type {
		case domain.ConditionAlways:
			continue
		case domain.ConditionInList:
			parts = append(parts, fmt.Sprintf("%s in [%s]", c.Field, strings.Join(c.Values, ", ")))
		default:
			parts = append(parts, fmt.Sprintf("%s %s %s", c.Field, c.Type, c.Value))
		}
	}
	return escapeLabel(strings.Join(parts, " and "))
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
