package internal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"portal-dm/auth"
	"portal-dm/services"
)

// StartDebugServer exposes a read-only inspection endpoint for operators:
// GET /inspect?user=<id> dumps that viewer's conversation list as JSON.
// It binds on localhost only and trusts the user parameter; it is a
// diagnostics tool, not a transport surface.
func StartDebugServer(log *slog.Logger, service services.IMessagingService, port int, endpoint string) {
	mux := http.NewServeMux()

	mux.HandleFunc(endpoint, func(w http.ResponseWriter, r *http.Request) {
		user := r.URL.Query().Get("user")
		if user == "" {
			http.Error(w, "missing user parameter", http.StatusBadRequest)
			return
		}

		ctx := auth.ContextWithUser(r.Context(), user)
		conversations, err := service.ListConversations(ctx, user)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(conversations); err != nil {
			log.Error("Failed to encode inspect response", "error", err)
		}
	})

	go func() {
		addr := fmt.Sprintf("localhost:%d", port)
		log.Info("Debug server listening", "addr", addr, "endpoint", endpoint)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("Debug server stopped", "error", err)
		}
	}()
}
