// Package archive loads exported conversation logs and linearizes them into question/answer pairs.
package archive

import (
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/cchalm/learnlog/internal/plaintext"
)

// Author roles that take part in pairing. Every other role is ignored.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrMalformedArchive is returned when the archive document as a whole cannot be interpreted. It is fatal for
// a run, unlike problems with individual conversations.
var ErrMalformedArchive = errors.New("malformed archive")

// Archive is an exported conversation log. It is read-only once loaded.
type Archive struct {
	Conversations []Conversation
	// Problems lists conversations whose shape could not be interpreted. They contribute no nodes.
	Problems []Problem
}

// Problem describes a conversation that was skipped while loading
type Problem struct {
	Index          int
	ConversationID string
	Reason         string
}

func (p Problem) String() string {
	if p.ConversationID == "" {
		return fmt.Sprintf("conversation #%d: %s", p.Index, p.Reason)
	}
	return fmt.Sprintf("conversation #%d (%s): %s", p.Index, p.ConversationID, p.Reason)
}

// Conversation holds the nodes of one chat session in the order they were serialized
type Conversation struct {
	ID          string
	Title       string
	CurrentNode string
	Nodes       []Node
}

// Node is one entry of a conversation graph. A node without a message is a structural placeholder.
type Node struct {
	ID       string
	Parent   string
	Children []string
	Message  *Message
}

// Message is a single turn. Body is the normalized plain text of the first content part.
type Message struct {
	Role string
	Body string
}

// Load reads and parses the archive at path
func Load(path string) (*Archive, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive '%s': %w", path, err)
	}
	arc, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("failed to parse archive '%s': %w", path, err)
	}
	return arc, nil
}

// Parse interprets data as a JSON array of conversations. Only a document that is not valid JSON, or whose top
// level is not an array, is an error; malformed conversations are recorded in Archive.Problems.
func Parse(data []byte) (*Archive, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrMalformedArchive)
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: top level is not an array of conversations", ErrMalformedArchive)
	}

	arc := &Archive{}
	index := 0
	root.ForEach(func(_, value gjson.Result) bool {
		conv, reason := parseConversation(value)
		if reason != "" {
			arc.Problems = append(arc.Problems, Problem{Index: index, ConversationID: conv.ID, Reason: reason})
		}
		arc.Conversations = append(arc.Conversations, conv)
		index++
		return true
	})
	return arc, nil
}

// parseConversation returns the conversation and, if its shape is unusable, the reason why
func parseConversation(value gjson.Result) (Conversation, string) {
	if !value.IsObject() {
		return Conversation{}, "not an object"
	}

	conv := Conversation{
		ID:          firstString(value, "conversation_id", "id"),
		Title:       firstString(value, "title"),
		CurrentNode: firstString(value, "current_node"),
	}

	mapping := value.Get("mapping")
	if !mapping.Exists() {
		return conv, "no mapping"
	}
	if !mapping.IsObject() {
		return conv, "mapping is not an object"
	}

	// ForEach visits keys in document order, which is the assumed turn order
	mapping.ForEach(func(key, node gjson.Result) bool {
		conv.Nodes = append(conv.Nodes, parseNode(key.String(), node))
		return true
	})
	return conv, ""
}

func parseNode(id string, value gjson.Result) Node {
	node := Node{ID: id}
	if !value.IsObject() {
		return node
	}

	node.Parent = firstString(value, "parent")
	value.Get("children").ForEach(func(_, child gjson.Result) bool {
		if child.Type == gjson.String {
			node.Children = append(node.Children, child.Str)
		}
		return true
	})

	message := value.Get("message")
	if !message.IsObject() {
		return node
	}
	node.Message = &Message{
		Role: firstString(message, "author.role"),
		Body: plaintext.NormalizeJSON(message.Get("content.parts.0")),
	}
	return node
}

// firstString returns the first of paths that holds a JSON string, or "" if none does
func firstString(value gjson.Result, paths ...string) string {
	for _, p := range paths {
		if r := value.Get(p); r.Type == gjson.String {
			return r.Str
		}
	}
	return ""
}
