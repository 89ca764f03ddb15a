package pdf_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/memcardhq/memcard/internal/pdf"
	"github.com/memcardhq/memcard/pkg/logger"
)

var _ = Describe("Preflight", func() {
	var (
		preflight *pdf.Preflight
		tmpDir    string
		ctx       context.Context
	)

	BeforeEach(func() {
		preflight = pdf.NewPreflight(1<<20, logger.New(
			logger.WithOutput(GinkgoWriter),
			logger.WithPrefix("[pdf-test] "),
			logger.WithFlags(0),
		))
		tmpDir = GinkgoT().TempDir()
		ctx = context.Background()
	})

	It("rejects files without a .pdf extension", func() {
		path := filepath.Join(tmpDir, "notes.txt")
		Expect(os.WriteFile(path, []byte("hello"), 0644)).To(Succeed())

		_, err := preflight.Check(ctx, path)
		Expect(err).To(MatchError(ContainSubstring("not a PDF file")))
	})

	It("rejects a path that does not exist", func() {
		_, err := preflight.Check(ctx, filepath.Join(tmpDir, "missing.pdf"))
		Expect(err).To(MatchError(ContainSubstring("failed to stat")))
	})

	It("rejects files above the upload limit before validating them", func() {
		small := pdf.NewPreflight(16, logger.New(
			logger.WithOutput(GinkgoWriter),
			logger.WithPrefix("[pdf-test] "),
			logger.WithFlags(0),
		))

		path := filepath.Join(tmpDir, "big.pdf")
		Expect(os.WriteFile(path, bytes.Repeat([]byte("x"), 64), 0644)).To(Succeed())

		_, err := small.Check(ctx, path)
		Expect(err).To(MatchError(ContainSubstring("above the")))
	})

	It("rejects structurally broken PDFs", func() {
		path := filepath.Join(tmpDir, "broken.pdf")
		Expect(os.WriteFile(path, []byte("%PDF-1.4 truncated garbage"), 0644)).To(Succeed())

		_, err := preflight.Check(ctx, path)
		Expect(err).To(MatchError(ContainSubstring("invalid PDF")))
	})

	It("treats a report without text pages as not ready", func() {
		report := &pdf.Report{PageCount: 3, TextPages: 0}
		Expect(report.Ready()).To(BeFalse())

		report.TextPages = 1
		Expect(report.Ready()).To(BeTrue())
	})
})
