// Package monitor polls FortiGate appliances for conserve mode risk.
//
// Each configured device gets its own Session, run concurrently by an
// Orchestrator. A session polls on a fixed cadence anchored at its start
// time, so cycle n begins at start + n*interval regardless of how long
// earlier cycles took. A cycle that overruns skips the ticks it missed.
//
// # Cycle
//
//  1. Fetch performance status and the process table (Fetcher)
//  2. Derive per-process CPU from tick counters where needed
//  3. Rank processes by memory and validate reported percentages
//  4. Classify CPU and memory into NORMAL / WARNING / CRITICAL bands
//  5. Hand the result to the device's Recorder and any Observer
//
// # Failures
//
// Failures are classified at the transport boundary (see pkg/fortios):
//
//	connection  retried within the cycle with capped exponential backoff,
//	            then recorded as a gap
//	auth        recorded once, the session stops
//	malformed   recorded with the raw payload, the cycle is skipped
//
// A failing device never affects another device's session.
//
// # Shutdown
//
// Cancelling the run context (or calling Orchestrator.Stop) stops every
// session. A fetch in flight is abandoned without writing anything; a cycle
// whose fetch already succeeded is written before the session exits.
//
// # Session States
//
//	STARTING -> POLLING -> SLEEPING -> POLLING ...
//	POLLING -> ERROR_BACKOFF -> POLLING       (connection retry)
//	any -> STOPPING -> STOPPED
package monitor
