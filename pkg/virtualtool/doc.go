// Package virtualtool memoizes verified plans per question signature.
//
// An entry counts how often the same plan was independently re-derived for a
// signature. Once the count reaches the promotion threshold the entry becomes
// active, its plan is frozen, and Lookup starts returning it. Replay re-runs
// the frozen plan through the executor so unreliable steps are re-verified.
//
// There is no eviction; entries live as long as the Store.
package virtualtool
