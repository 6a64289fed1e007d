package wire

import (
	"bytes"
	"testing"
)

func TestRegistration_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := Registration{WorkerID: "w-1", Service: "aB3xZ", ReplyAddr: "127.0.0.1:9001"}

	if err := NewEncoder(&buf).Encode(want); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var got Registration
	if err := NewDecoder(&buf).Decode(&got); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestWorkerMessage_RoundTrip(t *testing.T) {
	for _, kind := range []MessageKind{Connected, ShutDown} {
		var buf bytes.Buffer
		want := WorkerMessage{Kind: kind}

		if err := NewEncoder(&buf).Encode(want); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}

		var got WorkerMessage
		if err := NewDecoder(&buf).Decode(&got); err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if got != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}
	}
}

func TestEnvelope_ControlVariantRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := Envelope{IsInvoke: false, Control: WorkerMessage{Kind: ShutDown}}

	if err := NewEncoder(&buf).Encode(want); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var got Envelope
	if err := NewDecoder(&buf).Decode(&got); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.IsInvoke {
		t.Error("expected IsInvoke false")
	}
	if got.Control.Kind != ShutDown {
		t.Errorf("expected Control.Kind ShutDown, got %v", got.Control.Kind)
	}
}

func TestEnvelope_InvokeVariantRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := Envelope{IsInvoke: true, Invoke: Invoke{ClosureID: "workload.increment", Arg: []byte(`41`)}}

	if err := NewEncoder(&buf).Encode(want); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var got Envelope
	if err := NewDecoder(&buf).Decode(&got); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !got.IsInvoke {
		t.Error("expected IsInvoke true")
	}
	if got.Invoke.ClosureID != "workload.increment" {
		t.Errorf("expected ClosureID workload.increment, got %s", got.Invoke.ClosureID)
	}
	if string(got.Invoke.Arg) != "41" {
		t.Errorf("expected Arg 41, got %s", got.Invoke.Arg)
	}
}

func TestInvokeResult_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := InvokeResult{OK: false, Payload: nil, ErrMsg: "workload: increment does not accept negative input, got -1"}

	if err := NewEncoder(&buf).Encode(want); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var got InvokeResult
	if err := NewDecoder(&buf).Decode(&got); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.OK != want.OK || got.ErrMsg != want.ErrMsg {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestDecoder_MultipleValuesOnOneStream(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	if err := enc.Encode(WorkerMessage{Kind: Connected}); err != nil {
		t.Fatalf("Encode 1 failed: %v", err)
	}
	if err := enc.Encode(WorkerMessage{Kind: ShutDown}); err != nil {
		t.Fatalf("Encode 2 failed: %v", err)
	}

	dec := NewDecoder(&buf)
	var first, second WorkerMessage
	if err := dec.Decode(&first); err != nil {
		t.Fatalf("Decode 1 failed: %v", err)
	}
	if err := dec.Decode(&second); err != nil {
		t.Fatalf("Decode 2 failed: %v", err)
	}
	if first.Kind != Connected || second.Kind != ShutDown {
		t.Errorf("expected Connected then ShutDown, got %v then %v", first.Kind, second.Kind)
	}
}

func TestMessageKind_String(t *testing.T) {
	if Connected.String() != "Connected" {
		t.Errorf("expected Connected, got %s", Connected.String())
	}
	if ShutDown.String() != "ShutDown" {
		t.Errorf("expected ShutDown, got %s", ShutDown.String())
	}
	if MessageKind(99).String() != "MessageKind(99)" {
		t.Errorf("expected fallback format, got %s", MessageKind(99).String())
	}
}
