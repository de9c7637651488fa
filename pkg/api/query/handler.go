// Package query exposes the semantic search endpoint: embed the question,
// rank chunks, synthesize a cited answer.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"emisor_intel/pkg/core/agent"
	"emisor_intel/pkg/core/registry"
	"emisor_intel/pkg/core/retrieval"
	"emisor_intel/pkg/models"
)

var (
	agentManager *agent.Manager
	engine       *retrieval.Engine
	resolver     *registry.Resolver
)

// InitHandler wires the shared collaborators into the package handlers.
func InitHandler(mgr *agent.Manager, eng *retrieval.Engine, res *registry.Resolver) {
	agentManager = mgr
	engine = eng
	resolver = res
}

type QueryRequest struct {
	Query        string `json:"query"`
	IssuerID     string `json:"issuerId,omitempty"`
	AnalysisType string `json:"analysisType,omitempty"`
	TopK         int    `json:"topK,omitempty"`
}

type SourceRef struct {
	Index         int     `json:"index"`
	DocumentTitle string  `json:"documentTitle"`
	DocumentDate  string  `json:"documentDate"`
	IssuerName    string  `json:"issuerName"`
	Similarity    float64 `json:"similarity"`
}

type QueryResponse struct {
	Answer   string      `json:"answer"`
	Sources  []SourceRef `json:"sources"`
	IssuerID string      `json:"issuerId,omitempty"`
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

// HandleQuery serves POST /ai/query.
func HandleQuery(w http.ResponseWriter, r *http.Request) {
	if applyCORS(w, r, "POST") {
		return
	}
	if r.Method != "POST" {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use POST")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "EMPTY_QUERY", "query is required")
		return
	}

	ctx := r.Context()

	// An issuer filter accepts raw names too; resolution failure is a clean
	// 404, never a guess.
	issuerID := ""
	if req.IssuerID != "" {
		id, ok := resolver.Resolve(req.IssuerID)
		if !ok {
			writeError(w, http.StatusNotFound, "UNKNOWN_ISSUER",
				fmt.Sprintf("issuer %q not in registry", req.IssuerID))
			return
		}
		issuerID = id
	}

	queryEmbedding, err := agentManager.Embedder().Embed(ctx, req.Query)
	if err != nil {
		writeError(w, http.StatusBadGateway, "EMBEDDING_FAILED", err.Error())
		return
	}

	results, err := engine.Search(ctx, queryEmbedding, issuerID, req.TopK)
	if err != nil {
		switch {
		case errors.Is(err, retrieval.ErrIndexEmpty):
			// Corpus not built yet: distinct from a query that matched
			// nothing.
			writeError(w, http.StatusServiceUnavailable, "STILL_INDEXING",
				"document index is still being built, try again later")
		case errors.Is(err, retrieval.ErrUnknownIssuer):
			writeError(w, http.StatusNotFound, "UNKNOWN_ISSUER", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "SEARCH_FAILED", err.Error())
		}
		return
	}

	resp := QueryResponse{IssuerID: issuerID, Sources: []SourceRef{}}
	if len(results) == 0 {
		resp.Answer = "No se encontraron documentos relevantes para la consulta."
		writeJSON(w, http.StatusOK, resp)
		return
	}

	answer, err := synthesizeAnswer(ctx, req.Query, req.AnalysisType, results)
	if err != nil {
		fmt.Printf("[QUERY] synthesis failed, returning sources only: %v\n", err)
		answer = "No fue posible sintetizar una respuesta; consulte las fuentes listadas."
	}

	resp.Answer = answer
	for i, res := range results {
		resp.Sources = append(resp.Sources, SourceRef{
			Index:         i + 1,
			DocumentTitle: res.Metadata.DocumentTitle,
			DocumentDate:  res.Metadata.DocumentDate,
			IssuerName:    res.Metadata.IssuerName,
			Similarity:    res.Similarity,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

const synthesisSystemPrompt = `Eres un analista del mercado de valores nicaragüense.
Respondes en español, basándote exclusivamente en los fragmentos documentales provistos.
Citas cada afirmación con el número de fragmento correspondiente, por ejemplo [1].
Si los fragmentos no contienen la respuesta, dilo explícitamente.`

// synthesizeAnswer builds the grounded answer from the ranked fragments.
func synthesizeAnswer(ctx context.Context, query, analysisType string, results []models.SearchResult) (string, error) {
	var sb strings.Builder
	for i, res := range results {
		fmt.Fprintf(&sb, "[%d] %s (%s)\n%s\n\n", i+1,
			res.Metadata.DocumentTitle, res.Metadata.DocumentDate, res.Text)
	}

	focus := ""
	if analysisType != "" {
		focus = fmt.Sprintf("\nEnfoque del análisis: %s.", analysisType)
	}
	prompt := fmt.Sprintf(`Fragmentos documentales:

%s
Pregunta: %s%s

Responde citando los fragmentos por número.`, sb.String(), query, focus)

	provider := agentManager.GetProvider(agent.TaskQuerySynthesis)
	return provider.GenerateResponse(ctx, prompt, synthesisSystemPrompt, nil)
}
