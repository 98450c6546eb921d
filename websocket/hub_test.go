package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishNeverBlocks(t *testing.T) {
	h := NewHub()
	for i := 0; i < cap(h.Broadcast)+5; i++ {
		h.Publish(AvailabilityUpdate{Date: "2025-07-01"})
	}
	assert.Len(t, h.Broadcast, cap(h.Broadcast))
}

func TestRunStopsAndDropsEmptyDates(t *testing.T) {
	h := NewHub()
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()

	h.Publish(AvailabilityUpdate{Date: "2025-07-01"})
	h.remove("2025-07-01", nil)
	h.Stop()
	<-done

	assert.Empty(t, h.clients)
}

func TestJoinAndLeaveAfterStop(t *testing.T) {
	h := NewHub()
	h.Stop()

	client := &Client{Date: "2025-07-01"}
	h.Join(client)
	h.Leave(client)

	assert.Empty(t, h.clients)
}
