package archive

import "slices"

// QAPair is a user question and the assistant answer that followed it
type QAPair struct {
	Question       string
	Answer         string
	ConversationID string
}

// ExtractOptions controls how conversations are linearized
type ExtractOptions struct {
	// FollowThread walks each conversation from its root to its current node using parent links instead of
	// using serialization order. Conversations without a usable chain fall back to serialization order.
	FollowThread bool
}

// Extract pairs every user turn with the next assistant turn, across all conversations, in archive order.
//
// A user turn replaces any question still waiting for an answer, and an assistant turn with no waiting question
// is dropped. Nodes without a message and turns from other roles are skipped. The waiting question does not
// carry over from one conversation to the next.
func Extract(arc *Archive, opts ExtractOptions) []QAPair {
	var pairs []QAPair
	for _, conv := range arc.Conversations {
		nodes := conv.Nodes
		if opts.FollowThread {
			if thread, ok := conv.Thread(); ok {
				nodes = thread
			}
		}
		pairs = appendPairs(pairs, conv.ID, nodes)
	}
	return pairs
}

func appendPairs(pairs []QAPair, conversationID string, nodes []Node) []QAPair {
	pending := ""
	for _, node := range nodes {
		if node.Message == nil {
			continue
		}
		switch node.Message.Role {
		case RoleUser:
			pending = node.Message.Body
		case RoleAssistant:
			if pending == "" {
				continue
			}
			pairs = append(pairs, QAPair{
				Question:       pending,
				Answer:         node.Message.Body,
				ConversationID: conversationID,
			})
			pending = ""
		}
	}
	return pairs
}

// Thread returns the nodes on the path from the root to CurrentNode, root first. ok is false when the
// conversation has no current node or the parent chain is broken or cyclic.
func (c Conversation) Thread() (thread []Node, ok bool) {
	if c.CurrentNode == "" {
		return nil, false
	}

	byID := make(map[string]int, len(c.Nodes))
	for i, n := range c.Nodes {
		byID[n.ID] = i
	}

	visited := make(map[string]bool)
	for id := c.CurrentNode; id != ""; {
		i, found := byID[id]
		if !found || visited[id] {
			return nil, false
		}
		visited[id] = true
		thread = append(thread, c.Nodes[i])
		id = c.Nodes[i].Parent
	}

	slices.Reverse(thread)
	return thread, true
}
