package domain

// NodeType discriminates the behavior of a node when a session enters it.
type NodeType string

const (
	// NodeCollectInput prompts the user and stores the validated reply in a
	// context variable.
	NodeCollectInput NodeType = "collect_input"
	// NodeMenu presents an ordered list of options and routes on the choice.
	NodeMenu NodeType = "menu"
	// NodeMessage emits its text and advances without waiting for input.
	NodeMessage NodeType = "message"
	// NodeAIChat delegates turns to a language model until an exit keyword.
	NodeAIChat NodeType = "ai_chat"
	// NodeProcessMedia accepts an uploaded media reference and stores it.
	NodeProcessMedia NodeType = "process_media"
)

// KnownNodeTypes lists every node type the engine can execute. Loaders
// reject definitions that use anything else.
var KnownNodeTypes = []NodeType{
	NodeCollectInput,
	NodeMenu,
	NodeMessage,
	NodeAIChat,
	NodeProcessMedia,
}

// FlowDefinition is a complete, immutable conversational flow. Once a
// definition passes integrity validation the engine never mutates it; all
// per-conversation state lives on the Session.
type FlowDefinition struct {
	ID          string          `json:"id" yaml:"id" validate:"required"`
	Name        string          `json:"name,omitempty" yaml:"name,omitempty"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string          `json:"version,omitempty" yaml:"version,omitempty"`
	StartNodeID string          `json:"start_node_id" yaml:"start_node_id" validate:"required"`
	Nodes       map[string]Node `json:"nodes" yaml:"nodes" validate:"required,min=1"`
}

// Node returns the node with the given id, or false when absent.
func (f *FlowDefinition) Node(id string) (Node, bool) {
	n, ok := f.Nodes[id]
	return n, ok
}

// Start returns the entry node of the flow.
func (f *FlowDefinition) Start() (Node, bool) {
	return f.Node(f.StartNodeID)
}

// Node is a single step of a flow. Which fields are meaningful depends on
// Type; the loader enforces the per-type shape so the engine can assume it.
type Node struct {
	ID   string   `json:"id" yaml:"id"`
	Type NodeType `json:"type" yaml:"type"`

	// Name is a human-readable label for flow authoring tools. The engine
	// never reads it.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Prompt is shown when the session enters the node. Message nodes use it
	// as their payload, collect_input and menu nodes as the question.
	// Documents may also spell this "message"; the loader maps it here.
	Prompt string `json:"prompt,omitempty" yaml:"prompt,omitempty"`

	// OutputVariable names the session context key that receives collected
	// input or a stored media reference. Documents may also spell this
	// "input_field".
	OutputVariable string `json:"output_variable,omitempty" yaml:"output_variable,omitempty"`

	// InputType is a channel rendering hint for collected input (text,
	// number, email, ...). The engine validates through Validations instead.
	InputType string `json:"input_type,omitempty" yaml:"input_type,omitempty"`

	// Options is the ordered option list of a menu node.
	Options []MenuOption `json:"options,omitempty" yaml:"options,omitempty"`

	Validations []ValidationRule `json:"validations,omitempty" yaml:"validations,omitempty"`
	Actions     []Action         `json:"actions,omitempty" yaml:"actions,omitempty"`
	Transitions []Transition     `json:"transitions,omitempty" yaml:"transitions,omitempty"`

	// DefaultTransition is the node to advance to when no transition
	// condition matches. Empty on terminal nodes.
	DefaultTransition string `json:"default_transition,omitempty" yaml:"default_transition,omitempty"`

	AIConfig    *AIConfig           `json:"ai_config,omitempty" yaml:"ai_config,omitempty"`
	MediaConfig *ProcessMediaConfig `json:"process_media_config,omitempty" yaml:"process_media_config,omitempty"`

	// TelegramConfig carries channel-specific presentation settings. The
	// engine passes it through untouched.
	TelegramConfig map[string]any `json:"telegram_config,omitempty" yaml:"telegram_config,omitempty"`
}

// Terminal reports whether the node ends the flow: no transitions and no
// default to follow.
func (n Node) Terminal() bool {
	return len(n.Transitions) == 0 && n.DefaultTransition == ""
}

// WaitsForInput reports whether the engine pauses at this node until the
// user's next turn.
func (n Node) WaitsForInput() bool {
	switch n.Type {
	case NodeCollectInput, NodeMenu, NodeAIChat, NodeProcessMedia:
		return true
	default:
		return false
	}
}

// MenuOption is one selectable entry of a menu node. Users may answer with
// the 1-based position or the label text; Value is what gets stored in the
// session context.
type MenuOption struct {
	Value  string `json:"value" yaml:"value"`
	Label  string `json:"label" yaml:"label"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
}

// AIConfig configures an ai_chat node.
type AIConfig struct {
	SystemPrompt       string   `json:"system_prompt" yaml:"system_prompt"`
	Model              string   `json:"model,omitempty" yaml:"model,omitempty"`
	Provider           string   `json:"provider,omitempty" yaml:"provider,omitempty"`
	IncludeChatHistory bool     `json:"include_chat_history,omitempty" yaml:"include_chat_history,omitempty"`
	MaxHistoryMessages int      `json:"max_history_messages,omitempty" yaml:"max_history_messages,omitempty"`
	ContextVariables   []string `json:"context_variables,omitempty" yaml:"context_variables,omitempty"`
	ExitKeywords       []string `json:"exit_keywords,omitempty" yaml:"exit_keywords,omitempty"`
	ExitNodeID         string   `json:"exit_node_id,omitempty" yaml:"exit_node_id,omitempty"`
}

// ProcessMediaConfig configures a process_media node.
type ProcessMediaConfig struct {
	AllowedTypes []string `json:"allowed_types,omitempty" yaml:"allowed_types,omitempty"`
	MaxSizeBytes int64    `json:"max_size_bytes,omitempty" yaml:"max_size_bytes,omitempty"`
	StorageKey   string   `json:"storage_key,omitempty" yaml:"storage_key,omitempty"`

	// ServiceConfig holds settings for whatever downstream service handles
	// the media. Opaque to the engine.
	ServiceConfig map[string]any `json:"service_config,omitempty" yaml:"service_config,omitempty"`
}
