package domain

import (
	"encoding/json"
	"testing"
)

func TestImageRequestAmountAcceptsStringAndNumber(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Amount
	}{
		{name: "string amount", body: `{"prompt":"a fox","amount":"3"}`, want: "3"},
		{name: "number amount", body: `{"prompt":"a fox","amount":2}`, want: "2"},
		{name: "omitted amount", body: `{"prompt":"a fox"}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req ImageRequest
			if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if req.Amount != tt.want {
				t.Fatalf("expected amount %q, got %q", tt.want, req.Amount)
			}
		})
	}
}

func TestImageRequestAmountRejectsOtherTypes(t *testing.T) {
	var req ImageRequest
	if err := json.Unmarshal([]byte(`{"prompt":"a fox","amount":["2"]}`), &req); err == nil {
		t.Fatal("expected error for array amount")
	}
}
