package faults_test

import (
	"errors"
	"testing"

	"subtitlegen/internal/faults"
)

func TestPolicyForMatchesSpecTable(t *testing.T) {
	cases := []struct {
		kind            faults.Kind
		disposition     faults.Disposition
		consumesAttempt bool
	}{
		{faults.InvalidInput, faults.DispositionFail, false},
		{faults.AuthFault, faults.DispositionFail, false},
		{faults.TransientIO, faults.DispositionRetry, false},
		{faults.QuotaExceeded, faults.DispositionPause, false},
		{faults.ModelOutputInvalid, faults.DispositionRetry, true},
		{faults.QualityBelowThreshold, faults.DispositionRetry, true},
		{faults.StructuralInvariant, faults.DispositionFail, false},
		{faults.DiskExhausted, faults.DispositionFail, false},
		{faults.Cancelled, faults.DispositionAbandon, false},
	}
	for _, tc := range cases {
		policy := faults.PolicyFor(tc.kind)
		if policy.Disposition != tc.disposition {
			t.Errorf("%s: disposition = %s, want %s", tc.kind, policy.Disposition, tc.disposition)
		}
		if policy.ConsumesAttempt != tc.consumesAttempt {
			t.Errorf("%s: consumesAttempt = %v, want %v", tc.kind, policy.ConsumesAttempt, tc.consumesAttempt)
		}
	}
}

func TestKindOfUnwrapsFault(t *testing.T) {
	base := errors.New("boom")
	fault := faults.Wrap(faults.QuotaExceeded, "rate limited", base)
	if faults.KindOf(fault) != faults.QuotaExceeded {
		t.Fatalf("expected QuotaExceeded, got %s", faults.KindOf(fault))
	}
	if !errors.Is(fault, base) {
		t.Fatal("expected Unwrap to expose the cause")
	}
}

func TestKindOfDefaultsUnclassifiedErrorsToTransientIO(t *testing.T) {
	if faults.KindOf(errors.New("plain")) != faults.TransientIO {
		t.Fatal("expected unclassified errors to default to TransientIO")
	}
}
