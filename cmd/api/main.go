package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	apiissuers "emisor_intel/pkg/api/issuers"
	apimetrics "emisor_intel/pkg/api/metrics"
	apiquery "emisor_intel/pkg/api/query"
	"emisor_intel/pkg/core/agent"
	"emisor_intel/pkg/core/cache"
	coremetrics "emisor_intel/pkg/core/metrics"
	"emisor_intel/pkg/core/registry"
	"emisor_intel/pkg/core/retrieval"
	"emisor_intel/pkg/core/store"
)

func main() {
	godotenv.Load()

	// Provider routing from config
	configData, _ := os.ReadFile("config/models.yaml")
	var agentCfg agent.Config
	yaml.Unmarshal(configData, &agentCfg)
	agentMgr := agent.NewManager(agentCfg)

	// Durable tier. A missing DATABASE_URL degrades to in-memory chunks and
	// file-backed snapshots so the API still comes up for local work.
	ctx := context.Background()
	var loader *registry.Loader
	var chunkSource retrieval.ChunkSource
	var chunkReader coremetrics.ChunkReader
	var snapStore coremetrics.SnapshotStore

	if err := store.InitDB(ctx); err != nil {
		fmt.Printf("[WARNING] database unavailable, using local fallbacks: %v\n", err)
		loader = registry.NewStaticLoader()
		mem := store.NewMemoryChunks()
		chunkSource = mem
		chunkReader = mem
		snapStore = store.NewSnapshotStore(nil, "")
	} else {
		loader = registry.NewLoader(store.NewConfigRepo())
		repo := store.NewChunkRepo()
		chunkSource = repo
		chunkReader = repo
		snapStore = store.NewSnapshotStore(store.GetPool(), "")
		defer store.Close()
	}

	resolver := registry.NewResolver(loader)
	engine := retrieval.NewEngine(chunkSource, resolver)
	aggregator := coremetrics.NewAggregator(
		agentMgr.GetProvider(agent.TaskMetrics), chunkReader, snapStore, resolver, cache.NewMemory())

	fmt.Printf("[API] provider routing: %s active\n", agentMgr.GetActiveProvider())

	// Registry endpoints
	apiissuers.InitHandler(resolver, loader)
	http.HandleFunc("/issuers", apiissuers.HandleList)
	http.HandleFunc("/issuers/refresh", apiissuers.HandleRefresh)
	http.HandleFunc("/issuer/", apiissuers.HandleGet)

	// Semantic query endpoint
	apiquery.InitHandler(agentMgr, engine, resolver)
	http.HandleFunc("/ai/query", apiquery.HandleQuery)

	// Metrics endpoints
	apimetrics.InitHandler(aggregator, resolver)
	http.HandleFunc("/metrics/extract/", apimetrics.HandleExtract)
	http.HandleFunc("/metrics/history/extract/", apimetrics.HandleHistoryExtract)
	http.HandleFunc("/metrics/history/", apimetrics.HandleHistory)
	http.HandleFunc("/metrics/compare", apimetrics.HandleCompare)
	http.HandleFunc("/metrics/", apimetrics.HandleSnapshot)

	fmt.Println("API server starting on :8080...")
	fmt.Println("  - GET  /issuers")
	fmt.Println("  - POST /issuers/refresh")
	fmt.Println("  - GET  /issuer/{id}")
	fmt.Println("  - POST /ai/query")
	fmt.Println("  - GET  /metrics/{id}")
	fmt.Println("  - POST /metrics/extract/{id}")
	fmt.Println("  - GET  /metrics/history/{id}")
	fmt.Println("  - POST /metrics/history/extract/{id}")
	fmt.Println("  - POST /metrics/compare")

	if err := http.ListenAndServe(":8080", nil); err != nil {
		fmt.Printf("[FATAL] Server failed to start: %v\n", err)
		os.Exit(1)
	}
}
