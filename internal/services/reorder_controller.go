package services

import (
	"fmt"
	"route-optimization-service/internal/domain"
)

// DragEvent is a drag-and-drop gesture: drop SourceID where DestinationID sits.
type DragEvent struct {
	SourceID      string `json:"source_id"`
	DestinationID string `json:"destination_id"`
}

// ReorderController turns manual gestures into single store reorders.
// The store's change hook takes care of recomputation, so no-op gestures
// never start a new travel fetch.
type ReorderController struct {
	store *OrderingStore
}

func NewReorderController(store *OrderingStore) *ReorderController {
	return &ReorderController{store: store}
}

// Drag applies ev and reports whether the ordering changed. Gestures naming
// a stop that has since left the ordering are ignored.
func (c *ReorderController) Drag(ev DragEvent) bool {
	if ev.SourceID == "" || ev.DestinationID == "" || ev.SourceID == ev.DestinationID {
		return false
	}
	return c.store.reorderByID(ev.SourceID, ev.DestinationID)
}

// Move reorders by index. Indices come from clients, so out-of-range values
// are reported as a ValidationError instead of panicking.
func (c *ReorderController) Move(from, to int) (bool, error) {
	moved, ok := c.store.tryReorder(from, to)
	if !ok {
		return false, domain.NewValidationError(
			"move stop",
			fmt.Sprintf("indices (%d, %d) out of range for %d stops", from, to, c.store.Len()),
			nil,
		)
	}
	return moved, nil
}
