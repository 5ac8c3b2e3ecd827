package analytics

import (
	"encoding/json"
	"testing"
)

func TestDivideByZeroIsUndefined(t *testing.T) {
	r := Divide(10, 0)
	if r.IsDefined() {
		t.Fatalf("expected undefined, got %v", r)
	}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "null" {
		t.Fatalf("expected null, got %s", b)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name        string
		part, whole int
		want        float64
	}{
		{"all", 4, 4, 100},
		{"none", 0, 7, 0},
		{"third", 1, 3, 33.33},
		{"two thirds", 2, 3, 66.67},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Percent(tt.part, tt.whole).Value()
			if !ok {
				t.Fatalf("expected defined")
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
	if Percent(0, 0).IsDefined() {
		t.Errorf("expected undefined for empty whole")
	}
}

func TestRoundHalfEven(t *testing.T) {
	if got := Round(2.125, 2); got != 2.12 {
		t.Errorf("expected 2.12, got %v", got)
	}
	if got := Round(2.135, 2); got != 2.14 {
		t.Errorf("expected 2.14, got %v", got)
	}
}

func TestRatioJSONRoundTrip(t *testing.T) {
	var r Ratio
	if err := json.Unmarshal([]byte("12.5"), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, ok := r.Value(); !ok || v != 12.5 {
		t.Fatalf("unexpected %v", r)
	}
	if err := json.Unmarshal([]byte("null"), &r); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if r.IsDefined() {
		t.Fatalf("expected undefined after null")
	}
}
