// Command dumptext prints the normalized text of a form as the field
// extractor sees it, for debugging extraction patterns.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/access-form-extractor/internal/common"
	"github.com/joseph-ayodele/access-form-extractor/internal/pdftext"
	"github.com/joseph-ayodele/access-form-extractor/internal/rules"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "dumptext <form.pdf>")
		os.Exit(2)
	}
	path := os.Args[1]

	cfg, err := common.LoadConfig("")
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	x := pdftext.NewExtractor(pdftext.Config{
		Method:    cfg.Text.Method,
		Pdftotext: cfg.Text.Pdftotext,
		MaxPages:  cfg.Text.MaxPages,
	}, logger)

	doc, err := x.Extract(ctx, path)
	if err != nil {
		logger.Error("text extraction failed", "path", path, "error", err)
		os.Exit(1)
	}

	res := rules.NewExtractor(logger).Extract(doc.Text)
	logger.Info("text extraction OK",
		"path", path,
		"method", doc.Method,
		"pages", doc.Pages,
		"preamble_skipped", doc.PreambleSkipped,
		"warnings", doc.Warnings,
		"chars", len(doc.Text),
		"duration_ms", doc.Duration.Milliseconds(),
		"resolved", len(res.Resolved()),
		"unresolved", res.Unresolved(),
	)

	fmt.Println("==== normalized text ====")
	fmt.Println(doc.Text)
	fmt.Println("==== end ====")
}
