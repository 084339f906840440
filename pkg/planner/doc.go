// Package planner models the step sequences a conversation executes and
// replays them through a tool invoker.
//
// A Plan records which tool ran with which arguments, never the numeric
// results, so replaying it re-runs verification for unreliable tools.
package planner
