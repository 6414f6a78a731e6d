package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"restroom-status-backend/config"
	"restroom-status-backend/internal/live"
	"restroom-status-backend/internal/occupancy"
	"restroom-status-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store       store.Store
	protocol    *occupancy.Protocol
	broker      *live.Broker
	sync        *live.Synchronizer
	webpush     *webpush.Options
	groupLabels config.GroupLabelsConfig
	loc         *time.Location
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, protocol *occupancy.Protocol, broker *live.Broker, sync *live.Synchronizer, webpushOptions *webpush.Options, groupLabels config.GroupLabelsConfig, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		store:       s,
		protocol:    protocol,
		broker:      broker,
		sync:        sync,
		webpush:     webpushOptions,
		groupLabels: groupLabels,
		loc:         loc,
	}
}

// todayStart is the local-midnight boundary used by the history and
// counter queries.
func (h *Handler) todayStart() time.Time {
	now := time.Now().In(h.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
}
