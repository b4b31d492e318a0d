// Package sim provides the discrete-event engine for a single-server (M/M/1) queue.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - customer.go: Customer lifecycle (waiting → in service → departed)
//   - event.go: the two events that drive the clock (Arrival, Departure)
//   - engine.go: the event loop, time-weighted integration and history recording
//   - statistics.go: read-only derivations (utilization, Little's Law, steady state)
//
// # Architecture
//
// The sim package owns the engine and its read surface; collaborators live in
// sub-packages:
//   - sim/control/: the closed-loop rate controller (four strategies)
//   - sim/trace/: adjustment trace recording for controller analysis
//
// The engine is single-threaded. Step, the rate setters and the controller must
// never be called concurrently on the same engine.
//
// # Reproducibility
//
// Each Engine has its own PartitionedRNG with separate arrival and service
// streams. Pass WithSeed to make a run reproducible; without it the engine
// seeds itself from the wall clock.
package sim
