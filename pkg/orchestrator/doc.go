// Package orchestrator implements the ask entry point.
//
// Ask normalizes the question into a signature and consults the virtual tool
// store first. An active entry is replayed through the executor without any
// collaborator turn. Otherwise a conversation is driven to completion and its
// verified plan is recorded against the signature, so that repeated
// identical questions eventually promote the plan to a virtual tool.
package orchestrator
