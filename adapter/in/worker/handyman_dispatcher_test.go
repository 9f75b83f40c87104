package worker

import (
	"context"
	"testing"
	"time"

	"handyman_server/core/port/out"
)

func TestParsePayload(t *testing.T) {
	at := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	msg := NewMessage(JobManagerNotify, map[string]any{
		"user_id":   "76b3b1fb-04fe-4b9f-8919-a431a8e3ddb1",
		"email_id":  float64(42), // JSON numbers arrive as float64
		"quote_id":  float64(7),
		"rule_name": "Leak requests",
		"reason":    "rule_notify",
		"at":        at.Format(time.RFC3339),
	})

	alert, err := ParsePayload[out.ManagerAlert](msg)
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	if alert.EmailID != 42 || alert.QuoteID != 7 {
		t.Errorf("alert = %+v", alert)
	}
	if alert.Reason != "rule_notify" {
		t.Errorf("Reason = %q", alert.Reason)
	}
	if !alert.At.Equal(at) {
		t.Errorf("At = %v, want %v", alert.At, at)
	}
}

func TestParsePayload_TypeMismatch(t *testing.T) {
	msg := NewMessage(JobManagerNotify, map[string]any{
		"email_id": "not-a-number",
	})
	if _, err := ParsePayload[out.ManagerAlert](msg); err == nil {
		t.Error("ParsePayload() should fail on mismatched field types")
	}
}

func TestHandler_UnknownJobType(t *testing.T) {
	h := NewHandler(nil, nil)
	msg := NewMessage("job.nobody.knows", map[string]any{})

	// Unknown types are dropped, not retried.
	if err := h.Process(context.Background(), msg); err != nil {
		t.Errorf("Process() error = %v, want nil for unknown type", err)
	}
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage(JobAutomationProcess, map[string]any{"email_id": float64(1)})
	if msg.ID == "" {
		t.Error("message ID not assigned")
	}
	if msg.Priority != PriorityNormal {
		t.Errorf("Priority = %d, want normal", msg.Priority)
	}
	if msg.IsPriority() {
		t.Error("normal message reported as priority")
	}

	urgent := NewPriorityMessage(JobManagerNotify, nil, PriorityHigh)
	if !urgent.IsPriority() {
		t.Error("high priority message not reported as priority")
	}
}
