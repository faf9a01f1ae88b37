package randx

import (
	"testing"

	"github.com/google/uuid"
)

func TestConnID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := ConnID()
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("ConnID produced invalid id %q: %v", id, err)
		}
		if seen[id] {
			t.Fatalf("ConnID repeated %q", id)
		}
		seen[id] = true
	}
}
