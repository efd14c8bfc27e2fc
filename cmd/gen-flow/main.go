// Command gen-flow scaffolds a working example flow into a directory,
// ready for `parley chat` or `parley serve --flows`.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/parleyflow/parley/pkg/domain"
	"github.com/parleyflow/parley/pkg/dsl"
)

func main() {
	targetDir := "examples/golden-path"
	if len(os.Args) > 1 {
		targetDir = os.Args[1]
	}

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		fmt.Printf("Failed to create %s: %v\n", targetDir, err)
		os.Exit(1)
	}

	fmt.Printf("Generating example flow in: %s\n", targetDir)

	def, err := goldenPath()
	if err != nil {
		fmt.Printf("Generated flow is invalid: %v\n", err)
		os.Exit(1)
	}

	data, err := yaml.Marshal(def)
	if err != nil {
		fmt.Printf("Marshal failed: %v\n", err)
		os.Exit(1)
	}

	path := filepath.Join(targetDir, def.ID+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Printf("Write failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", path)
}

// goldenPath exercises one node of every type except process_media: a
// greeting, validated input collection, a menu and an AI chat segment.
func goldenPath() (*domain.FlowDefinition, error) {
	b := dsl.New("golden-path").
		Name("Golden Path").
		Description("A small tour of every core node type.").
		Version("1")

	b.Add("welcome").
		Message("Welcome to Parley! Let's take a quick tour.").
		Go("ask-name")

	b.Add("ask-name").
		CollectInput("What should I call you?").
		SaveTo("name").
		Validate(
			domain.ValidationRule{Type: domain.ValidationRequired, ErrorMessage: "A name, please."},
			domain.ValidationRule{Type: domain.ValidationMaxLength, Params: map[string]any{"value": 40}},
		).
		Go("main-menu")

	b.Add("main-menu").
		Menu("Nice to meet you, {{name}}. What would you like to do?").
		SaveTo("choice").
		Option("chat", "Chat with the assistant", "assistant").
		Option("bye", "Finish the tour", "goodbye")

	b.Add("assistant").
		AIChat(domain.AIConfig{
			SystemPrompt:       "You are a friendly tour guide for the Parley flow engine. Keep answers short.",
			IncludeChatHistory: true,
			ContextVariables:   []string{"name"},
			ExitKeywords:       []string{"exit", "done"},
			ExitNodeID:         "goodbye",
		}).
		Prompt("You're chatting with the assistant now.")

	b.Add("goodbye").
		Message("Thanks for stopping by, {{name}}. Bye!")

	return b.Build()
}
