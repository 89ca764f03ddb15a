package scanner_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/memcardhq/memcard/internal/scanner"
	"github.com/memcardhq/memcard/pkg/logger"
)

var _ = Describe("DirectoryScanner", func() {
	var (
		s      *scanner.DirectoryScanner
		tmpDir string
		ctx    context.Context
	)

	BeforeEach(func() {
		s = scanner.New(logger.New(
			logger.WithOutput(GinkgoWriter),
			logger.WithPrefix("[scanner-test] "),
			logger.WithFlags(0),
		))
		tmpDir = GinkgoT().TempDir()
		ctx = context.Background()
	})

	touch := func(rel string) {
		path := filepath.Join(tmpDir, rel)
		Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
		Expect(os.WriteFile(path, []byte("%PDF-1.4"), 0644)).To(Succeed())
	}

	It("finds PDFs recursively and reports paths relative to the root", func() {
		touch("lecture1.pdf")
		touch("week2/lecture2.pdf")
		touch("week2/notes.txt")

		pdfs, err := s.FindPDFs(ctx, tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(pdfs).To(HaveLen(2))

		var rels []string
		for _, pdf := range pdfs {
			rels = append(rels, pdf.RelativePath)
			Expect(pdf.AbsolutePath).To(BeAnExistingFile())
		}
		Expect(rels).To(ConsistOf("lecture1.pdf", filepath.Join("week2", "lecture2.pdf")))
	})

	It("matches the extension case-insensitively", func() {
		touch("SLIDES.PDF")

		pdfs, err := s.FindPDFs(ctx, tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(pdfs).To(HaveLen(1))
	})

	It("errors when the directory holds no PDFs", func() {
		touch("notes.txt")
		os.Remove(filepath.Join(tmpDir, "notes.txt"))

		_, err := s.FindPDFs(ctx, tmpDir)
		Expect(err).To(MatchError(ContainSubstring("no PDF files found")))
	})

	It("errors when given a file instead of a directory", func() {
		touch("single.pdf")

		_, err := s.FindPDFs(ctx, filepath.Join(tmpDir, "single.pdf"))
		Expect(err).To(MatchError(ContainSubstring("is not a directory")))
	})

	It("errors when the directory does not exist", func() {
		_, err := s.FindPDFs(ctx, filepath.Join(tmpDir, "missing"))
		Expect(err).To(MatchError(ContainSubstring("cannot access")))
	})

	It("stops when the context is cancelled", func() {
		touch("lecture1.pdf")
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := s.FindPDFs(cancelled, tmpDir)
		Expect(err).To(MatchError(context.Canceled))
	})
})
