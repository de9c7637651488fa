// Package metrics exposes the snapshot and history endpoints.
package metrics

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	coremetrics "emisor_intel/pkg/core/metrics"
	"emisor_intel/pkg/core/registry"
)

var (
	aggregator *coremetrics.Aggregator
	resolver   *registry.Resolver
)

// InitHandler wires the shared aggregator into the package handlers.
func InitHandler(agg *coremetrics.Aggregator, res *registry.Resolver) {
	aggregator = agg
	resolver = res
}

func applyCORS(w http.ResponseWriter, r *http.Request, methods string) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}

// issuerFromPath resolves the trailing path segment against the registry.
func issuerFromPath(w http.ResponseWriter, r *http.Request, prefix string) (string, bool) {
	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "issuer id required")
		return "", false
	}
	id, ok := resolver.Resolve(raw)
	if !ok {
		writeError(w, http.StatusNotFound, "UNKNOWN_ISSUER", fmt.Sprintf("issuer %q not in registry", raw))
		return "", false
	}
	return id, true
}

func mapMetricsError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, coremetrics.ErrUnknownIssuer):
		writeError(w, http.StatusNotFound, "UNKNOWN_ISSUER", err.Error())
	case errors.Is(err, coremetrics.ErrNoIndexedContent):
		writeError(w, http.StatusServiceUnavailable, "STILL_INDEXING",
			"no indexed documents for this issuer yet, try again later")
	default:
		writeError(w, http.StatusInternalServerError, "METRICS_FAILED", err.Error())
	}
}

// HandleExtract serves POST /metrics/extract/{id}: a fresh current-state
// extraction over the issuer's recent chunks.
func HandleExtract(w http.ResponseWriter, r *http.Request) {
	if applyCORS(w, r, "POST") {
		return
	}
	if r.Method != "POST" {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use POST")
		return
	}
	id, ok := issuerFromPath(w, r, "/metrics/extract/")
	if !ok {
		return
	}

	snap, err := aggregator.ExtractMetrics(r.Context(), id)
	if err != nil {
		mapMetricsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleSnapshot serves GET /metrics/{id}: the cached current snapshot.
func HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	if applyCORS(w, r, "GET") {
		return
	}
	if r.Method != "GET" {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use GET")
		return
	}
	id, ok := issuerFromPath(w, r, "/metrics/")
	if !ok {
		return
	}

	snap, err := aggregator.Snapshot(r.Context(), id)
	if err != nil {
		mapMetricsError(w, err)
		return
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, "NO_SNAPSHOT", "no snapshot for issuer yet")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleHistoryExtract serves POST /metrics/history/extract/{id}: multi-year
// reconstruction from the wide chunk window.
func HandleHistoryExtract(w http.ResponseWriter, r *http.Request) {
	if applyCORS(w, r, "POST") {
		return
	}
	if r.Method != "POST" {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use POST")
		return
	}
	id, ok := issuerFromPath(w, r, "/metrics/history/extract/")
	if !ok {
		return
	}

	recs, err := aggregator.ExtractHistory(r.Context(), id)
	if err != nil {
		mapMetricsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"issuerId": id, "historia": recs})
}

// HandleHistory serves GET /metrics/history/{id}: the fixed-length per-year
// history, placeholders included.
func HandleHistory(w http.ResponseWriter, r *http.Request) {
	if applyCORS(w, r, "GET") {
		return
	}
	if r.Method != "GET" {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use GET")
		return
	}
	id, ok := issuerFromPath(w, r, "/metrics/history/")
	if !ok {
		return
	}

	recs, err := aggregator.History(r.Context(), id)
	if err != nil {
		mapMetricsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"issuerId": id, "historia": recs})
}

type compareRequest struct {
	IssuerIDs []string `json:"issuerIds"`
}

// HandleCompare serves POST /metrics/compare: side-by-side snapshots.
func HandleCompare(w http.ResponseWriter, r *http.Request) {
	if applyCORS(w, r, "POST") {
		return
	}
	if r.Method != "POST" {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use POST")
		return
	}

	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if len(req.IssuerIDs) == 0 {
		writeError(w, http.StatusBadRequest, "MISSING_IDS", "issuerIds is required")
		return
	}

	// Raw names are accepted here too; unresolvable entries are dropped.
	ids := make([]string, 0, len(req.IssuerIDs))
	for _, raw := range req.IssuerIDs {
		if id, ok := resolver.Resolve(raw); ok {
			ids = append(ids, id)
		}
	}

	cols, err := aggregator.Compare(r.Context(), ids)
	if err != nil {
		mapMetricsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"comparison": cols})
}
