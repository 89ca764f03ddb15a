package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/memcardhq/memcard/pkg/logger"
)

// Report is what the preflight learned about a PDF before upload.
type Report struct {
	Path      string
	FileName  string
	SizeBytes int64
	PageCount int
	TextPages int
}

// Ready reports whether the document is worth submitting: the pipeline
// extracts highlights from text, so a scan-only PDF with no extractable
// text would come back empty.
func (r *Report) Ready() bool {
	return r.PageCount > 0 && r.TextPages > 0
}

// Preflight checks a PDF locally before it is uploaded, so obviously
// unusable files never reach the store.
type Preflight struct {
	maxBytes int64
	log      *logger.Logger
}

func NewPreflight(maxBytes int64, log *logger.Logger) *Preflight {
	return &Preflight{
		maxBytes: maxBytes,
		log:      log,
	}
}

// Check validates the file structurally and inspects its pages.
func (p *Preflight) Check(ctx context.Context, path string) (*Report, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, fmt.Errorf("not a PDF file: %s", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if p.maxBytes > 0 && info.Size() > p.maxBytes {
		return nil, fmt.Errorf("%s is %d bytes, above the %d byte upload limit", filepath.Base(path), info.Size(), p.maxBytes)
	}

	if err := api.ValidateFile(path, nil); err != nil {
		return nil, fmt.Errorf("invalid PDF %s: %w", filepath.Base(path), err)
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	report := &Report{
		Path:      path,
		FileName:  filepath.Base(path),
		SizeBytes: info.Size(),
		PageCount: doc.NumPage(),
	}

	for pageNum := 0; pageNum < doc.NumPage(); pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		text, err := doc.Text(pageNum)
		if err != nil {
			p.log.Debug("couldn't extract text from page %d of %s: %v", pageNum, report.FileName, err)
			continue
		}
		if strings.TrimSpace(text) != "" {
			report.TextPages++
		}
	}

	p.log.Debug("preflight %s: %d pages, %d with text, %d bytes",
		report.FileName, report.PageCount, report.TextPages, report.SizeBytes)

	return report, nil
}
