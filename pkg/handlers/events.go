package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/infractl/infractl/pkg/errors"
	"github.com/infractl/infractl/pkg/events"
	"github.com/infractl/infractl/pkg/logger"
)

// keepaliveInterval is how often an SSE comment is written to hold idle
// connections open through proxies.
const keepaliveInterval = 15 * time.Second

type eventsHandler struct {
	bus       *events.Bus
	keepalive time.Duration
}

func NewEventsHandler(bus *events.Bus) *eventsHandler {
	return &eventsHandler{
		bus:       bus,
		keepalive: keepaliveInterval,
	}
}

// filterFromQuery builds a subscription filter from the query string.
// Supported parameters: resource_type_name, resource_id, and event_types as a
// comma-separated list.
func filterFromQuery(r *http.Request) (events.Filter, *errors.ServiceError) {
	filter := events.Filter{
		ResourceTypeName: r.URL.Query().Get("resource_type_name"),
	}

	if raw := r.URL.Query().Get("resource_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			return filter, errors.BadRequest("'%s' is not a valid resource_id", raw)
		}
		filter.ResourceID = id
	}

	if raw := r.URL.Query().Get("event_types"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			switch t := events.EventType(strings.TrimSpace(name)); t {
			case events.EventCreated, events.EventModified, events.EventDeleted, events.EventReconciled:
				filter.EventTypes = append(filter.EventTypes, t)
			default:
				return filter, errors.BadRequest("'%s' is not a valid event type", name)
			}
		}
	}

	return filter, nil
}

// Stream serves the resource event feed as server-sent events. The stream
// stays open until the client disconnects or the bus shuts down.
func (h eventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	filter, serviceErr := filterFromQuery(r)
	if serviceErr != nil {
		handleError(r, w, serviceErr)
		return
	}
	h.stream(w, r, filter)
}

// StreamResource serves the event feed for a single resource. Query filters
// still apply on top of the fixed resource id.
func (h eventsHandler) StreamResource(w http.ResponseWriter, r *http.Request) {
	filter, serviceErr := filterFromQuery(r)
	if serviceErr != nil {
		handleError(r, w, serviceErr)
		return
	}

	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		handleError(r, w, errors.BadRequest("'%s' is not a valid resource id", raw))
		return
	}
	filter.ResourceID = id

	h.stream(w, r, filter)
}

func (h eventsHandler) stream(w http.ResponseWriter, r *http.Request, filter events.Filter) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		handleError(r, w, errors.GeneralError("Streaming is not supported by this connection"))
		return
	}

	sub := h.bus.Subscribe(filter)
	if sub == nil {
		handleError(r, w, errors.GeneralError("Event stream is shutting down"))
		return
	}
	defer h.bus.Unsubscribe(sub.ID())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Tell intermediaries not to buffer or compress the stream.
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("Content-Encoding", "identity")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	logger.Info(ctx, "Event stream opened", logger.FieldSubscriberID, sub.ID())

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Event stream closed by client",
				logger.FieldSubscriberID, sub.ID(),
				"dropped", sub.Dropped())
			return

		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ":keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case event, open := <-sub.Events():
			if !open {
				// Bus shut down, end the stream cleanly.
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				logger.Error(ctx, "Unable to marshal event",
					logger.FieldEventType, string(event.EventType),
					"error", err.Error())
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.EventType, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
