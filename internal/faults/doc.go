// Package faults is the error taxonomy and policy table of spec.md §4.11
// (C12). Fault kinds are data; the policy each kind carries (fail / retry
// / pause / abandon, whether it consumes a retry attempt, how long to back
// off) lives in one table rather than being re-derived by branching code at
// each call site, per spec.md §9's design note on the quality retry loop.
package faults
