package snapshot_test

import (
	"testing"

	"github.com/goliatone/go-formsync/pkg/snapshot"
)

func TestRangeValue(t *testing.T) {
	tests := []struct {
		name                  string
		value, min, max, step string
		want                  string
	}{
		{name: "missing value takes midpoint", min: "0", max: "10", want: "5"},
		{name: "no attributes", want: "50"},
		{name: "above max is clamped", value: "42", max: "10", want: "10"},
		{name: "below min is clamped", value: "-5", min: "0", max: "10", want: "0"},
		{name: "in range kept", value: "7", min: "1", max: "10", want: "7"},
		{name: "snaps to step from min", value: "4", min: "1", max: "10", step: "2", want: "5"},
		{name: "tie goes up", value: "2", min: "0", max: "10", step: "4", want: "4"},
		{name: "max not on step", value: "10", min: "0", max: "10", step: "3", want: "9"},
		{name: "midpoint snapped", min: "0", max: "3", step: "2", want: "2"},
		{name: "fractional step", value: "0.33", min: "0", max: "1", step: "0.1", want: "0.3"},
		{name: "step any", value: "3.75", min: "0", max: "10", step: "any", want: "3.75"},
		{name: "garbage value", value: "abc", min: "2", max: "4", want: "3"},
		{name: "plus sign rejected", value: "+8", min: "0", max: "10", want: "5"},
		{name: "max below min", value: "9", min: "5", max: "1", want: "5"},
		{name: "invalid step falls back to one", value: "2.6", min: "0", max: "10", step: "0", want: "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := snapshot.RangeValue(tt.value, tt.min, tt.max, tt.step); got != tt.want {
				t.Fatalf("RangeValue(%q, %q, %q, %q) = %q, want %q", tt.value, tt.min, tt.max, tt.step, got, tt.want)
			}
		})
	}
}
