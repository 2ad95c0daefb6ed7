// Package output turns pipeline results into deliverables: a DOCX document
// rendered by pandoc (with a plain-text fallback) and an XLSX run report.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/novaocr/novaocr/internal/common"
)

// Document renders assembled content to a file at path.
type Document interface {
	Generate(ctx context.Context, content, path string) error
}

// TXTGenerator writes content as UTF-8 plain text.
type TXTGenerator struct{}

func (TXTGenerator) Generate(_ context.Context, content, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return common.NewAppError("OUTPUT_ERROR", fmt.Sprintf("create output directory for %s: %v", path, err), common.ErrOutput)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return common.NewAppError("OUTPUT_ERROR", fmt.Sprintf("write %s: %v", path, err), common.ErrOutput)
	}
	return nil
}

// DOCXGenerator renders markdown content to DOCX by piping it through pandoc.
type DOCXGenerator struct {
	Runner Runner
	Pandoc string // pandoc binary, defaults to "pandoc"
	Logger *slog.Logger
}

func NewDOCXGenerator(runner Runner, pandocPath string, logger *slog.Logger) *DOCXGenerator {
	if runner == nil {
		runner = execRunner{}
	}
	if pandocPath == "" {
		pandocPath = "pandoc"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DOCXGenerator{Runner: runner, Pandoc: pandocPath, Logger: logger}
}

func (g *DOCXGenerator) Generate(ctx context.Context, content, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return common.NewAppError("OUTPUT_ERROR", fmt.Sprintf("create output directory for %s: %v", path, err), common.ErrOutput)
	}

	start := time.Now()
	_, stderr, err := g.Runner.Run(ctx, []byte(content),
		g.Pandoc, "--from", "markdown", "--to", "docx", "--output", path)
	if err != nil {
		return common.NewAppError("OUTPUT_ERROR",
			fmt.Sprintf("pandoc failed for %s: %v: %s", path, err, truncate(string(stderr), 512)),
			common.ErrOutput)
	}

	g.Logger.Info("output.docx.ok", "path", path, "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

// Writer picks the generator for the configured format and degrades DOCX to
// plain text when pandoc is missing or fails. Write returns the path of the
// file that was actually produced.
type Writer struct {
	docx   Document
	txt    Document
	format string
	logger *slog.Logger
}

func NewWriter(docx Document, format string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{docx: docx, txt: TXTGenerator{}, format: format, logger: logger}
}

func (w *Writer) Write(ctx context.Context, content, basePath string) (string, error) {
	if w.format == "txt" || w.docx == nil {
		path := basePath + ".txt"
		return path, w.txt.Generate(ctx, content, path)
	}

	docxPath := basePath + ".docx"
	if err := w.docx.Generate(ctx, content, docxPath); err != nil {
		txtPath := basePath + ".txt"
		w.logger.Warn("output.docx.fallback", "docx", docxPath, "txt", txtPath, "error", err)
		if terr := w.txt.Generate(ctx, content, txtPath); terr != nil {
			return "", terr
		}
		return txtPath, nil
	}
	return docxPath, nil
}
