package workload

import (
	"context"
	"testing"

	"jobplane/internal/closure"
)

func TestIncrement(t *testing.T) {
	r := closure.NewRegistry()
	Register(r)

	c, err := Increment.Apply(41)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	payload, errMsg, err := r.Invoke(context.Background(), c.ID, c.Arg)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if errMsg != "" {
		t.Fatalf("unexpected errMsg: %s", errMsg)
	}

	result, err := Increment.DecodeResult(payload)
	if err != nil {
		t.Fatalf("DecodeResult failed: %v", err)
	}
	if result != 42 {
		t.Errorf("expected 42, got %d", result)
	}
}

func TestIncrement_NegativeInputFails(t *testing.T) {
	r := closure.NewRegistry()
	Register(r)

	c, err := Increment.Apply(-1)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	_, errMsg, err := r.Invoke(context.Background(), c.ID, c.Arg)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if errMsg == "" {
		t.Fatal("expected a non-empty errMsg for negative input")
	}
}
