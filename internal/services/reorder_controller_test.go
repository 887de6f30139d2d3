package services

import (
	"route-optimization-service/internal/domain"
	"testing"
)

func TestDragMovesSourceToDestination(t *testing.T) {
	s := newStore(t, "A", "B", "C")
	c := NewReorderController(s)

	if !c.Drag(DragEvent{SourceID: "A", DestinationID: "C"}) {
		t.Fatal("expected a change")
	}
	assertIDs(t, s, "B", "C", "A")

	if !c.Drag(DragEvent{SourceID: "A", DestinationID: "B"}) {
		t.Fatal("expected a change")
	}
	assertIDs(t, s, "A", "B", "C")
}

func TestDragIgnoresNoopsAndUnknownStops(t *testing.T) {
	s := newStore(t, "A", "B", "C")
	c := NewReorderController(s)

	notified := 0
	s.OnChange(func(uint64) { notified++ })

	events := []DragEvent{
		{SourceID: "B", DestinationID: "B"},
		{SourceID: "X", DestinationID: "A"},
		{SourceID: "A", DestinationID: "gone"},
		{SourceID: "", DestinationID: "A"},
	}
	for _, ev := range events {
		if c.Drag(ev) {
			t.Fatalf("Drag(%+v) reported a change", ev)
		}
	}

	assertIDs(t, s, "A", "B", "C")
	if notified != 0 {
		t.Fatalf("notified %d times, want 0", notified)
	}
}

func TestMoveValidatesIndices(t *testing.T) {
	s := newStore(t, "A", "B", "C")
	c := NewReorderController(s)

	if _, err := c.Move(-1, 0); !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, err := c.Move(0, 3); !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	moved, err := c.Move(2, 2)
	if err != nil || moved {
		t.Fatalf("Move(2, 2) = %v, %v; want false, nil", moved, err)
	}

	moved, err = c.Move(2, 0)
	if err != nil || !moved {
		t.Fatalf("Move(2, 0) = %v, %v; want true, nil", moved, err)
	}
	assertIDs(t, s, "C", "A", "B")
}
