// Package conversation drives one question through a multi-turn exchange
// with the collaborator.
//
// The driver is an explicit state machine:
//
//	DISCOVERY --tool call--> EXECUTION --final answer--> FINAL
//	    \                        |
//	     +------ budget / failure / inconsistent answer ------> FAILED
//
// It suspends only while waiting for the collaborator's reply, and checks the
// turn budget before every call. A final answer is accepted only when it
// equals the verified value of the designated plan step.
package conversation
