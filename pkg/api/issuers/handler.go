// Package issuers exposes the read-only registry endpoints.
package issuers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"emisor_intel/pkg/core/registry"
)

var (
	resolver *registry.Resolver
	loader   *registry.Loader
)

// InitHandler wires the shared resolver and its config loader into the
// package handlers.
func InitHandler(r *registry.Resolver, l *registry.Loader) {
	resolver = r
	loader = l
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

// HandleList serves GET /issuers: the whole whitelist.
func HandleList(w http.ResponseWriter, r *http.Request) {
	if applyCORS(w, r, "GET") {
		return
	}
	if r.Method != "GET" {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use GET")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"issuers": resolver.Issuers()})
}

// HandleRefresh serves POST /issuers/refresh: drops the cached registry
// config so the next resolution refetches the remote record. Lets the API
// pick up a registry seeded or updated by a pipeline run without waiting
// out the TTL.
func HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if applyCORS(w, r, "POST") {
		return
	}
	if r.Method != "POST" {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use POST")
		return
	}

	loader.Invalidate()
	issuers := resolver.Issuers()
	fmt.Printf("[RESOLVE] registry config refreshed, %d issuers\n", len(issuers))
	writeJSON(w, http.StatusOK, map[string]interface{}{"refreshed": true, "issuers": issuers})
}

// HandleGet serves GET /issuer/{id}. The id segment accepts any known alias
// or technical id, not just the canonical slug.
func HandleGet(w http.ResponseWriter, r *http.Request) {
	if applyCORS(w, r, "GET") {
		return
	}
	if r.Method != "GET" {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use GET")
		return
	}

	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, "/issuer/"), "/")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "issuer id required")
		return
	}

	id, ok := resolver.Resolve(raw)
	if !ok {
		writeError(w, http.StatusNotFound, "UNKNOWN_ISSUER", fmt.Sprintf("issuer %q not in registry", raw))
		return
	}
	writeJSON(w, http.StatusOK, resolver.Issuer(id))
}
