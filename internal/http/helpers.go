package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"puremetrics/internal/core"
)

// parseDirection maps the dir query parameter to a sort direction. Anything
// other than "desc" sorts ascending, except an empty value which keeps the
// view's default.
func parseDirection(r *http.Request, def core.Direction) core.Direction {
	switch strings.TrimSpace(r.URL.Query().Get("dir")) {
	case "":
		return def
	case "desc":
		return core.Descending
	default:
		return core.Ascending
	}
}

// parseMaterials splits the materials parameter on commas. Empty segments
// are dropped; an empty result means no material filter.
func parseMaterials(r *http.Request) core.MaterialSet {
	raw := strings.TrimSpace(r.URL.Query().Get("materials"))
	if raw == "" {
		return nil
	}
	set := core.NewMaterialSet()
	for _, m := range strings.Split(raw, ",") {
		if m = strings.TrimSpace(m); m != "" {
			set.Toggle(m)
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

func parseQuery(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("q"))
}

func parseTransactionSort(r *http.Request) (core.TransactionColumn, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("sort"))
	if raw == "" {
		return core.ColumnEventTime, nil
	}
	return core.ParseTransactionColumn(raw)
}

func parseStatsSort(r *http.Request) (core.StatsColumn, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("sort"))
	if raw == "" {
		return core.StatsColumnVolume, nil
	}
	return core.ParseStatsColumn(raw)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
