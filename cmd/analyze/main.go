package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"compliancecheck-backend/cache"
	"compliancecheck-backend/llm"
	"compliancecheck-backend/models"
	"compliancecheck-backend/service"

	"github.com/joho/godotenv"
)

func main() {
	regulationsPath := flag.String("regulations", "", "path to the regulations JSON file (required)")
	documentsDir := flag.String("documents", "", "directory of processed document JSON files (required)")
	skipPath := flag.String("skip", "", "path to a skip configuration JSON file")
	guidancePath := flag.String("guidance", "", "path to a guidance JSON file")
	outDir := flag.String("out", "./analysis_output", "directory for generated reports")
	cacheDir := flag.String("cache", "./compliance_cache", "directory for the result cache")
	cleanCache := flag.Bool("clean-cache", false, "clear the result cache before running")
	skipValidation := flag.Bool("skip-validation", false, "skip the document relevance check")
	flag.Parse()

	if *regulationsPath == "" || *documentsDir == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: No .env file found, using environment variables")
	}

	ctx := context.Background()

	client, err := llm.NewClientFromEnv(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	resultCache, err := cache.New(*cacheDir)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	if *cleanCache {
		if err := resultCache.Clear(); err != nil {
			log.Fatalf("Failed to clear cache: %v", err)
		}
		log.Println("Cache cleared")
	}

	regulations, err := loadRegulations(*regulationsPath)
	if err != nil {
		log.Fatalf("Failed to load regulations: %v", err)
	}
	log.Printf("Loaded %d regulations", len(regulations))

	documents, err := loadDocuments(*documentsDir)
	if err != nil {
		log.Fatalf("Failed to load documents: %v", err)
	}
	log.Printf("Loaded %d documents", len(documents))

	opts := []service.AnalysisServiceOption{
		service.AnalysisWithLLMClient(client),
		service.AnalysisWithCache(resultCache),
	}

	if *skipPath != "" {
		filter, err := service.LoadSkipFilter(*skipPath)
		if err != nil {
			log.Fatalf("Failed to load skip config: %v", err)
		}
		opts = append(opts, service.AnalysisWithSkipFilter(filter))
	}

	if *guidancePath != "" {
		guidance, err := loadGuidance(*guidancePath)
		if err != nil {
			log.Fatalf("Failed to load guidance: %v", err)
		}
		log.Printf("Loaded %d guidance items", len(guidance))
		opts = append(opts, service.AnalysisWithGuidance(guidance))
	}

	analysisService := service.NewAnalysisService(opts...)

	// Relevance gate: drop documents the validator rejects before spending
	// two phases of model calls on them.
	if !*skipValidation {
		kept := documents[:0]
		for _, doc := range documents {
			result, err := analysisService.ValidateDocument(ctx, doc)
			if err != nil {
				log.Fatalf("Validation failed: %v", err)
			}
			if !result.IsRelevant {
				log.Printf("Skipping %s: %s", doc.Name(), result.Reason)
				continue
			}
			kept = append(kept, doc)
		}
		documents = kept
		log.Printf("%d documents passed relevance validation", len(documents))
	}

	reports, err := analysisService.AnalyzeDocuments(ctx, documents, regulations)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	for _, report := range reports {
		name := sanitizeName(report.DocumentName) + "_compliance_report.json"
		if err := writeJSON(filepath.Join(*outDir, name), report); err != nil {
			log.Fatalf("Failed to write report: %v", err)
		}
		log.Printf("Wrote %s (%.1f%% compliant, %d fallbacks)",
			name, report.CompliancePercentage, report.FallbackCount)
	}

	consolidationService := service.NewConsolidationService(
		service.ConsolidationWithLLMClient(client),
	)
	views := consolidationService.Consolidate(ctx, reports, regulations)
	if err := writeJSON(filepath.Join(*outDir, "consolidated_compliance_view.json"), views); err != nil {
		log.Fatalf("Failed to write consolidated view: %v", err)
	}
	log.Printf("Wrote consolidated view with %d regulations", len(views))

	fmt.Printf("\n✅ Analysis complete: %d reports in %s\n", len(reports), *outDir)
}

func loadRegulations(path string) ([]models.Regulation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var regs []models.Regulation
	if err := json.Unmarshal(data, &regs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return regs, nil
}

func loadGuidance(path string) ([]models.GuidanceItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []models.GuidanceItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return items, nil
}

// loadDocuments reads every .json file in dir as a processed document.
func loadDocuments(dir string) ([]*models.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var docs []*models.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var doc models.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if doc.Metadata.Filename == "" {
			doc.Metadata.Filename = entry.Name()
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func sanitizeName(name string) string {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "/", "_")
	return name
}
