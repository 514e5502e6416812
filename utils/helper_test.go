package utils

import "testing"

func TestUniqueSliceKeepsFirstOccurrenceOrder(t *testing.T) {
	got := UniqueSlice([]string{"a.example.com", "b.example.com", "a.example.com", "c.example.com", "b.example.com"})
	want := []string{"a.example.com", "b.example.com", "c.example.com"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
