package mistral

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/novaocr/novaocr/constants"
	"github.com/novaocr/novaocr/internal/provider"
)

const opOCRExtract = "ocr.extract"

// ExtractText implements provider.OCRClient against POST /v1/ocr.
// The file is shipped inline as a base64 data URL; PDFs go in document_url,
// images in image_url. Page markdown is joined in page order.
func (c *Client) ExtractText(ctx context.Context, filePath string) (string, error) {
	ext := constants.NormalizeExt(filepath.Ext(filePath))
	mime, ok := constants.MIMETypes[ext]
	if !ok {
		return "", provider.NewServiceError(provider.KindMalformed, opOCRExtract, 0,
			fmt.Errorf("unsupported file type: %s", filePath))
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", provider.NewServiceError(provider.KindMalformed, opOCRExtract, 0,
			fmt.Errorf("read file: %w", err))
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, encoded)

	var document map[string]any
	if constants.KindForExt(ext) == constants.MediaKindPDF {
		document = map[string]any{"type": "document_url", "document_url": dataURL}
	} else {
		document = map[string]any{"type": "image_url", "image_url": dataURL}
	}

	body := map[string]any{
		"model":    c.cfg.OCRModel,
		"document": document,
	}

	start := time.Now()
	raw, err := c.postJSON(ctx, opOCRExtract, c.cfg.BaseURL+"/ocr", body)
	if err != nil {
		return "", err
	}

	var resp struct {
		Pages []struct {
			Index    int    `json:"index"`
			Markdown string `json:"markdown"`
		} `json:"pages"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", provider.NewServiceError(provider.KindMalformed, opOCRExtract, 0,
			fmt.Errorf("decode ocr response: %w", err))
	}

	parts := make([]string, 0, len(resp.Pages))
	for _, p := range resp.Pages {
		parts = append(parts, p.Markdown)
	}
	text := strings.TrimSpace(strings.Join(parts, "\n"))

	if text == "" {
		c.logger.Warn("mistral.ocr.empty",
			"file", filepath.Base(filePath),
			"pages", len(resp.Pages),
		)
	} else {
		c.logger.Info("mistral.ocr.ok",
			"file", filepath.Base(filePath),
			"pages", len(resp.Pages),
			"chars", len(text),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
	return text, nil
}
