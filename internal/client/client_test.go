package client

import (
	"testing"

	"pgregory.net/rapid"
)

func TestRequestLinksToOriginal(t *testing.T) {
	original := RequestID{Current: "req1", CollectionID: "col1"}

	tests := []struct {
		name string
		next RequestID
		want bool
	}{
		{"identical request IDs", original, true},
		{"current IDs match", RequestID{Current: "req1"}, true},
		{"original names current", RequestID{Current: "req2", Original: "req1"}, true},
		{"neither matches", RequestID{Current: "req2", Original: "something else"}, false},
		{"no original", RequestID{Current: "req2"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RequestLinksToOriginal(original, tt.next); got != tt.want {
				t.Errorf("RequestLinksToOriginal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProperty_RequestLinksToOriginal(t *testing.T) {
	id := rapid.StringMatching(`[a-c]{1,2}`)
	rapid.Check(t, func(t *rapid.T) {
		original := RequestID{Current: id.Draw(t, "originalCurrent"), Original: id.Draw(t, "originalOriginal")}
		next := RequestID{Current: id.Draw(t, "nextCurrent"), Original: id.Draw(t, "nextOriginal")}

		want := next.Current == original.Current || next.Original == original.Current
		if got := RequestLinksToOriginal(original, next); got != want {
			t.Fatalf("RequestLinksToOriginal(%+v, %+v) = %v, want %v", original, next, got, want)
		}
	})
}
