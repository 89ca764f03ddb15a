package session_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/memcardhq/memcard/internal/session"
)

var _ = Describe("Session", func() {
	var authPath string

	BeforeEach(func() {
		authPath = filepath.Join(GinkgoT().TempDir(), "auth", "session.json")
	})

	Describe("validity", func() {
		It("requires both a token and a user id", func() {
			Expect((&session.Session{Token: "t", UserID: "u"}).Valid()).To(BeTrue())
			Expect((&session.Session{Token: "t"}).Valid()).To(BeFalse())
			Expect((&session.Session{UserID: "u"}).Valid()).To(BeFalse())
			Expect((&session.Session{}).Valid()).To(BeFalse())

			var nilSess *session.Session
			Expect(nilSess.Valid()).To(BeFalse())
		})

		It("gates flows behind the auth sentinel", func() {
			Expect((&session.Session{Token: "t", UserID: "u"}).Require()).To(Succeed())
			Expect((&session.Session{}).Require()).To(MatchError(session.ErrAuthRequired))
		})
	})

	Describe("persistence", func() {
		It("round-trips a saved session", func() {
			saved := &session.Session{Token: "tok-1", UserID: "user-1", Email: "me@example.com"}
			Expect(saved.Save(authPath)).To(Succeed())

			loaded, err := session.Load(authPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Token).To(Equal("tok-1"))
			Expect(loaded.UserID).To(Equal("user-1"))
			Expect(loaded.Email).To(Equal("me@example.com"))
			Expect(loaded.Valid()).To(BeTrue())
		})

		It("writes the file readable by the user only", func() {
			Expect((&session.Session{Token: "t", UserID: "u"}).Save(authPath)).To(Succeed())

			info, err := os.Stat(authPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0600)))
		})

		It("loads an empty session when no file exists", func() {
			loaded, err := session.Load(authPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Valid()).To(BeFalse())
		})

		It("errors on a corrupt session file", func() {
			Expect(os.MkdirAll(filepath.Dir(authPath), 0755)).To(Succeed())
			Expect(os.WriteFile(authPath, []byte("{not json"), 0600)).To(Succeed())

			_, err := session.Load(authPath)
			Expect(err).To(MatchError(ContainSubstring("failed to parse session file")))
		})

		It("clears a saved session and tolerates a missing one", func() {
			Expect((&session.Session{Token: "t", UserID: "u"}).Save(authPath)).To(Succeed())
			Expect(session.Clear(authPath)).To(Succeed())
			Expect(authPath).NotTo(BeAnExistingFile())

			Expect(session.Clear(authPath)).To(Succeed())
		})
	})
})
