package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/memcardhq/memcard/pkg/logger"
)

// PDFFile is one candidate document found under a submission directory.
type PDFFile struct {
	AbsolutePath string
	RelativePath string
}

// DirectoryScanner finds PDFs to submit when the user points the tool
// at a directory instead of a single file.
type DirectoryScanner struct {
	log *logger.Logger
}

func New(log *logger.Logger) *DirectoryScanner {
	return &DirectoryScanner{log: log}
}

// FindPDFs walks dir and returns every .pdf file beneath it.
func (s *DirectoryScanner) FindPDFs(ctx context.Context, dir string) ([]PDFFile, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var pdfs []PDFFile
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if info.IsDir() {
			s.log.Debug("Scanning directory: %s", path)
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			relPath = path
		}
		pdfs = append(pdfs, PDFFile{
			AbsolutePath: path,
			RelativePath: relPath,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(pdfs) == 0 {
		return nil, fmt.Errorf("no PDF files found in %s", dir)
	}
	return pdfs, nil
}
