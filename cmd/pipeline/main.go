// Batch ingestion job. Reads a scraped document listing (JSON file argument
// or stdin), resolves issuer names against the registry and runs each
// issuer's documents through the pipeline, highest-value documents first.
//
// Listing format:
//
//	[
//	  {"issuer": "Banco de la Producción, S.A.", "documents": [
//	    {"title": "Estados Financieros Auditados 2024", "url": "https://...", "date": "2025-03-15", "type": "pdf"}
//	  ]}
//	]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"emisor_intel/pkg/core/agent"
	"emisor_intel/pkg/core/cache"
	"emisor_intel/pkg/core/extraction"
	"emisor_intel/pkg/core/ingest"
	coremetrics "emisor_intel/pkg/core/metrics"
	"emisor_intel/pkg/core/registry"
	"emisor_intel/pkg/core/store"
	"emisor_intel/pkg/models"
)

// DefaultProcessingCap bounds documents per issuer per run. Override with
// PROCESSING_CAP.
const DefaultProcessingCap = 10

type issuerListing struct {
	Issuer    string               `json:"issuer"`
	Documents []models.RawDocument `json:"documents"`
}

func main() {
	godotenv.Load()

	configData, _ := os.ReadFile("config/models.yaml")
	var agentCfg agent.Config
	yaml.Unmarshal(configData, &agentCfg)
	agentMgr := agent.NewManager(agentCfg)

	listings, err := readListings()
	if err != nil {
		fmt.Printf("[FATAL] cannot read document listing: %v\n", err)
		os.Exit(1)
	}

	capPerIssuer := DefaultProcessingCap
	if v := os.Getenv("PROCESSING_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			capPerIssuer = n
		}
	}

	ctx := context.Background()
	var loader *registry.Loader
	var chunks interface {
		ingest.ChunkWriter
		coremetrics.ChunkReader
	}
	var snapStore coremetrics.SnapshotStore
	var docRepo *store.DocumentRepo

	if err := store.InitDB(ctx); err != nil {
		fmt.Printf("[WARNING] database unavailable, using local fallbacks: %v\n", err)
		loader = registry.NewStaticLoader()
		chunks = store.NewMemoryChunks()
		snapStore = store.NewSnapshotStore(nil, "")
	} else {
		defer store.Close()
		configRepo := store.NewConfigRepo()
		// Seed the remote registry record so the API side resolves the same
		// whitelist this run ingested under.
		if _, err := configRepo.FetchConfig(ctx); err != nil {
			if err := configRepo.SaveConfig(ctx, registry.StaticConfig()); err != nil {
				fmt.Printf("[WARNING] registry seed failed: %v\n", err)
			}
		}
		loader = registry.NewLoader(configRepo)
		chunks = store.NewChunkRepo()
		snapStore = store.NewSnapshotStore(store.GetPool(), "")
		docRepo = store.NewDocumentRepo()
	}

	resolver := registry.NewResolver(loader)
	aggregator := coremetrics.NewAggregator(
		agentMgr.GetProvider(agent.TaskMetrics), chunks, snapStore, resolver, cache.NewMemory())

	fmt.Printf("[PIPELINE] provider routing: %s active\n", agentMgr.GetActiveProvider())
	extractor := ingest.NewTextExtractor(agentMgr.OCR(), agentMgr.Vision())
	sidecar := extraction.NewExtractor(agentMgr.GetProvider(agent.TaskStructuredExtraction))
	pipeline := ingest.NewPipeline(extractor, sidecar, agentMgr.Embedder(), chunks).
		WithSnapshotSink(aggregator)
	if docRepo != nil {
		pipeline = pipeline.WithDocumentRecorder(docRepo)
		// REPROCESS=1 forces already-recorded documents through again.
		if os.Getenv("REPROCESS") == "" {
			pipeline = pipeline.WithProcessedChecker(docRepo)
		}
	}

	var totalProcessed, totalFailed, skippedIssuers int
	for _, listing := range listings {
		issuerID, ok := resolver.Resolve(listing.Issuer)
		if !ok {
			// Unknown issuers are skipped, never guessed.
			fmt.Printf("[PIPELINE] skipping unknown issuer %q (%d documents)\n",
				listing.Issuer, len(listing.Documents))
			skippedIssuers++
			continue
		}
		issuerName := resolver.Issuer(issuerID).Name
		fmt.Printf("[PIPELINE] processing %s (%s): %d documents listed, cap %d\n",
			issuerName, issuerID, len(listing.Documents), capPerIssuer)

		processed, failed := pipeline.ProcessIssuerDocuments(ctx, listing.Documents, issuerName, issuerID, capPerIssuer)
		totalProcessed += processed
		totalFailed += failed
	}

	fmt.Printf("[PIPELINE] run complete: %d documents processed, %d failed, %d issuers skipped\n",
		totalProcessed, totalFailed, skippedIssuers)
}

func readListings() ([]issuerListing, error) {
	var data []byte
	var err error
	if len(os.Args) > 1 {
		data, err = os.ReadFile(os.Args[1])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return nil, err
	}

	var listings []issuerListing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("invalid listing JSON: %w", err)
	}
	return listings, nil
}
