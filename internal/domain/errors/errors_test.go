package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrInvalidAmount,
		ErrInsufficientBalance,
		ErrMethodDisabled,
		ErrConflict,
		ErrTransferInFlight,
		ErrScheduleMalformed,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Fatalf("sentinels %v and %v must be distinct", a, b)
			}
		}
	}
}

func TestWrappedSentinelMatches(t *testing.T) {
	wrapped := fmt.Errorf("approve withdrawal 7: %w", ErrConflict)
	if !errors.Is(wrapped, ErrConflict) {
		t.Fatal("wrapped sentinel should match with errors.Is")
	}
}
