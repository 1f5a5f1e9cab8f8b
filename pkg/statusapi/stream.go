package statusapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/dmitrymomot/notifysync/pkg/logger"
)

// stream sends the connection status and the store snapshot as datastar
// signal patches: both once on connect, then each again whenever it changes.
// Intermediate snapshots are skipped when the client reads slowly.
func (h *handler) stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snapshots := h.notifications.Subscribe(ctx)
	defer func() { _ = snapshots.Close() }()
	statuses := h.conn.Subscribe(ctx)
	defer func() { _ = statuses.Close() }()

	sse := datastar.NewSSE(w, r)

	patch := func(name string, v any) bool {
		data, err := json.Marshal(map[string]any{name: v})
		if err == nil {
			err = sse.PatchSignals(data)
		}
		if err != nil {
			h.log.LogAttrs(ctx, slog.LevelDebug, "status stream closed",
				logger.Component("statusapi"), logger.Error(err))
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-statuses.Receive():
			if !ok || !patch("connection", viewOf(s)) {
				return
			}
		case snap, ok := <-snapshots.Receive():
			if !ok || !patch("notifications", snap) {
				return
			}
		}
	}
}
