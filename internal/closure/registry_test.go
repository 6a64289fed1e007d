package closure

import (
	"context"
	"errors"
	"testing"
)

func TestRegistryInvokeRoundTrip(t *testing.T) {
	r := NewRegistry()
	rf := Define(r, "add-one", func(_ context.Context, a int) (int, error) {
		return a + 1, nil
	}, JSONCodec[int]("int"), JSONCodec[int]("int"))

	c, err := rf.Apply(41)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	payload, errMsg, err := r.Invoke(context.Background(), c.ID, c.Arg)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if errMsg != "" {
		t.Fatalf("Invoke errMsg = %q, want empty", errMsg)
	}

	got, err := rf.DecodeResult(payload)
	if err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}
	if got != 42 {
		t.Fatalf("result = %d, want 42", got)
	}
}

func TestRegistryInvokeUnknownID(t *testing.T) {
	r := NewRegistry()
	_, _, err := r.Invoke(context.Background(), "does-not-exist", nil)
	var unknown *ErrUnknownClosure
	if !errors.As(err, &unknown) {
		t.Fatalf("Invoke error = %v, want *ErrUnknownClosure", err)
	}
}

func TestRegistryInvokeCatchesFunctionError(t *testing.T) {
	r := NewRegistry()
	rf := Define(r, "boom", func(_ context.Context, _ struct{}) (int, error) {
		return 0, errors.New("boom")
	}, JSONCodec[struct{}]("unit"), JSONCodec[int]("int"))

	c, err := rf.Apply(struct{}{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	_, errMsg, err := r.Invoke(context.Background(), c.ID, c.Arg)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if errMsg != "boom" {
		t.Fatalf("errMsg = %q, want %q", errMsg, "boom")
	}
}

func TestRegistryInvokeRecoversPanic(t *testing.T) {
	r := NewRegistry()
	rf := Define(r, "panics", func(_ context.Context, _ struct{}) (int, error) {
		panic("kaboom")
	}, JSONCodec[struct{}]("unit"), JSONCodec[int]("int"))

	c, _ := rf.Apply(struct{}{})
	_, errMsg, err := r.Invoke(context.Background(), c.ID, c.Arg)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if errMsg == "" {
		t.Fatalf("errMsg empty, want panic message")
	}
}

func TestRegisterDuplicateIDPanics(t *testing.T) {
	r := NewRegistry()
	Define(r, "dup", func(_ context.Context, a int) (int, error) { return a, nil }, JSONCodec[int]("int"), JSONCodec[int]("int"))

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	Define(r, "dup", func(_ context.Context, a int) (int, error) { return a, nil }, JSONCodec[int]("int"), JSONCodec[int]("int"))
}
