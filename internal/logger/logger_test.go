package logger

import "testing"

func TestNewReturnsUsableLogger(t *testing.T) {
	l := New()
	if l == nil {
		t.Fatal("expected logger instance")
	}
	l.Info("smoke", "key", "value")
}
