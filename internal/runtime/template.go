package runtime

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// renderTemplate substitutes {{variable}} placeholders with values from
// the session context. Dotted names traverse nested maps. A placeholder
// whose variable is missing stays in the text verbatim, which makes broken
// references visible instead of silently blank.
func renderTemplate(text string, ctx map[string]any) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		v, ok := lookupPath(ctx, name)
		if !ok {
			return match
		}
		return fmt.Sprintf("%v", v)
	})
}

// lookupPath resolves a possibly dotted variable name against nested
// map[string]any values.
func lookupPath(ctx map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	var current any = ctx
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
