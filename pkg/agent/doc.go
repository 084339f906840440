// Package agent is the collaborator channel: it sends the conversation
// history to a language model and classifies each reply.
//
// Invariants:
// - Every reply is classified into exactly one ReplyKind.
// - Only the first native tool call of a response is honoured.
// - Profiles are tried in priority order; permanent errors stop failover.
//
// Usage:
//
//	collab, _ := agent.NewLLMCollaborator(agent.Config{
//		Profiles: []agent.AuthProfile{{ID: "main", Provider: "openai", APIKey: key, Priority: 1}},
//	})
//	reply, _ := collab.Next(ctx, agent.Request{SystemPrompt: agent.SystemPrompt(7), History: history})
//	_ = reply.Kind
package agent
