package faults

import "time"

// Disposition is the scheduler-level action a fault's policy prescribes.
type Disposition string

const (
	// DispositionFail moves the job (or the affected target) to Failed
	// immediately; no retry is attempted.
	DispositionFail Disposition = "fail"
	// DispositionRetry re-attempts the unit of work, possibly consuming
	// an attempt from the per-(chunk,language,mode) budget.
	DispositionRetry Disposition = "retry"
	// DispositionPause re-queues the unit of work after a cooldown
	// without consuming an attempt.
	DispositionPause Disposition = "pause"
	// DispositionAbandon transitions the job to Abandoned (operator or
	// shutdown initiated).
	DispositionAbandon Disposition = "abandon"
)

// Policy is the fixed response to one Kind: whether to retry/pause/fail/
// abandon, whether a retry consumes an attempt, and how long to wait
// before the next try.
type Policy struct {
	Disposition     Disposition
	ConsumesAttempt bool
	Backoff         time.Duration
}

// table is the single source of truth for fault handling, per spec.md
// §4.11 and the Design Notes (§9) requirement that this be data, not
// ad-hoc branching.
var table = map[Kind]Policy{
	InvalidInput:          {Disposition: DispositionFail},
	AuthFault:             {Disposition: DispositionFail},
	TransientIO:           {Disposition: DispositionRetry, ConsumesAttempt: false, Backoff: time.Second},
	QuotaExceeded:         {Disposition: DispositionPause, ConsumesAttempt: false, Backoff: 60 * time.Second},
	ModelOutputInvalid:    {Disposition: DispositionRetry, ConsumesAttempt: true},
	QualityBelowThreshold: {Disposition: DispositionRetry, ConsumesAttempt: true},
	StructuralInvariant:   {Disposition: DispositionFail},
	DiskExhausted:         {Disposition: DispositionFail},
	Cancelled:             {Disposition: DispositionAbandon},
}

// PolicyFor returns the fixed policy for a fault kind. Unknown kinds
// default to the TransientIO policy, matching KindOf's conservative
// fallback.
func PolicyFor(kind Kind) Policy {
	if policy, ok := table[kind]; ok {
		return policy
	}
	return table[TransientIO]
}

// Decide resolves an error directly to its policy.
func Decide(err error) Policy {
	return PolicyFor(KindOf(err))
}

// WithCooldown returns a copy of the policy with a caller-supplied
// cooldown override, used by the scheduler to apply a configured
// quota_cooldown_s instead of the table's built-in default.
func (p Policy) WithCooldown(d time.Duration) Policy {
	p.Backoff = d
	return p
}
