// Command extract prints the fields and category extracted from a receipt.
// Text files are read as OCR output; images go through the configured OCR
// engines.
// Usage: go run ./cmd/extract [-text] <file>
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"receiptai/internal/config"
	"receiptai/internal/imagesource"
	"receiptai/internal/logging"
	"receiptai/internal/modelstore"
	"receiptai/internal/ocr"
	_ "receiptai/internal/ocr/azure"
	_ "receiptai/internal/ocr/documentai"
	_ "receiptai/internal/ocr/tesseract"
	"receiptai/internal/recordstore/backend"
	"receiptai/internal/recordstore/memory"
	"receiptai/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	asText := flag.Bool("text", false, "treat the file as OCR text even without a .txt extension")
	flag.Parse()
	if flag.NArg() != 1 {
		return fmt.Errorf("usage: extract [-text] <file>")
	}
	path := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	ctx := context.Background()
	store, closeStore, err := backend.Open(cfg, logger)
	if err != nil {
		return fmt.Errorf("opening record store: %w", err)
	}
	defer closeStore()
	// The model comes from the configured store; the receipt is written to a
	// throwaway in-memory store.
	cache := modelstore.NewLatestCache(modelstore.New(store), cfg.Model.Task)
	records := memory.New()

	recognizer, err := ocr.Build(ctx, &cfg.OCR, logger)
	if err != nil {
		return fmt.Errorf("initializing OCR: %w", err)
	}
	predict := service.NewPredictService(
		imagesource.NewResolver(nil, &cfg.OCR),
		recognizer, cache, records, nil,
		service.PredictConfig{Language: cfg.OCR.Language, Location: cfg.Server.Location()},
		logger)

	var result *service.PredictResult
	if *asText || strings.EqualFold(filepath.Ext(path), ".txt") {
		result, err = predict.Extract(ctx, service.ExtractInput{Text: string(data)})
	} else {
		result, err = predict.Predict(ctx, service.PredictInput{
			ImageBase64: base64.StdEncoding.EncodeToString(data),
		})
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
