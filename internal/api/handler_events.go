package api

import (
	"io"

	"github.com/gin-gonic/gin"
)

// GetEvents handles GET /api/events: a server-sent-event stream of facility
// changes and usage-record inserts. Each client gets its own scoped broker
// subscriptions, released when the connection goes away. The two streams
// stay independent on the wire: a "facility" event and the "record" event
// from the same entry can arrive in either order, so consumers must not
// derive counters from event arrival.
func (h *Handler) GetEvents(c *gin.Context) {
	facilitySub := h.broker.SubscribeFacilities()
	defer facilitySub.Close()
	recordSub := h.broker.SubscribeRecords()
	defer recordSub.Close()

	c.Writer.Header().Set("Cache-Control", "no-cache")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-facilitySub.C:
			if !ok {
				return false
			}
			c.SSEvent("facility", ev)
			return true
		case ev, ok := <-recordSub.C:
			if !ok {
				return false
			}
			c.SSEvent("record", ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
