package router_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/consentsort/internal/router"
	"github.com/kpauljoseph/consentsort/internal/testsupport"
	"github.com/kpauljoseph/consentsort/pkg/logger"
	"github.com/kpauljoseph/consentsort/pkg/models"
)

var _ = Describe("Router", func() {
	var (
		tempDir string
		dirs    models.OutputDirs
		r       *router.Router
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "consentsort-router-*")
		Expect(err).NotTo(HaveOccurred())

		dirs = models.OutputDirs{
			Root:   tempDir,
			Done:   filepath.Join(tempDir, "processed"),
			Failed: filepath.Join(tempDir, "processed_failed"),
		}
		Expect(os.MkdirAll(dirs.Done, 0755)).To(Succeed())
		Expect(os.MkdirAll(dirs.Failed, 0755)).To(Succeed())

		log := logger.New(logger.WithOutput(GinkgoWriter), logger.WithFlags(0), logger.WithLevel(logger.LevelDebug))
		r = router.New(dirs, log)
	})

	AfterEach(func() {
		Expect(os.RemoveAll(tempDir)).To(Succeed())
	})

	Context("Save", func() {
		It("should use the identifier as folder and file name", func() {
			path, err := r.Save(testsupport.TextSheet(), "SUBJ42")
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(filepath.Join(dirs.Done, "SUBJ42", "SUBJ42.png")))
			Expect(path).To(BeAnExistingFile())
		})

		It("should never overwrite an existing page", func() {
			first, err := r.Save(testsupport.TextSheet(), "SUBJ42")
			Expect(err).NotTo(HaveOccurred())
			second, err := r.Save(testsupport.BlankSheet(), "SUBJ42")
			Expect(err).NotTo(HaveOccurred())
			third, err := r.Save(testsupport.BlankSheet(), "SUBJ42")
			Expect(err).NotTo(HaveOccurred())

			Expect(second).To(Equal(filepath.Join(dirs.Done, "SUBJ42", "SUBJ42-01.png")))
			Expect(third).To(Equal(filepath.Join(dirs.Done, "SUBJ42", "SUBJ42-02.png")))

			img, err := testsupport.ReadPNG(first)
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Bounds().Dx()).To(Equal(testsupport.SheetWidth))
			_, err = testsupport.ReadPNG(second)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should give concurrent writers distinct names", func() {
			const writers = 16
			paths := make([]string, writers)
			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					p, err := r.Save(testsupport.TextSheet(), "SUBJ7")
					Expect(err).NotTo(HaveOccurred())
					paths[i] = p
				}(i)
			}
			wg.Wait()

			seen := map[string]bool{}
			for _, p := range paths {
				Expect(seen).NotTo(HaveKey(p))
				seen[p] = true
				_, err := testsupport.ReadPNG(p)
				Expect(err).NotTo(HaveOccurred())
			}
			entries, err := os.ReadDir(filepath.Join(dirs.Done, "SUBJ7"))
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(writers))
		})

		It("should refuse identifiers that escape the done directory", func() {
			_, err := r.Save(testsupport.TextSheet(), "../evil")
			Expect(errors.Is(err, router.ErrInvalidIdentifier)).To(BeTrue())
		})
	})

	DescribeTable("ValidIdentifier",
		func(id string, valid bool) {
			Expect(router.ValidIdentifier(id)).To(Equal(valid))
		},
		Entry("plain", "SUBJ42", true),
		Entry("with dash and dot", "S-1.2", true),
		Entry("empty", "", false),
		Entry("dot", ".", false),
		Entry("dot dot", "..", false),
		Entry("slash", "a/b", false),
		Entry("backslash", `a\b`, false),
		Entry("control character", "a\x00b", false),
		Entry("non-ascii", "Prüfung", false),
	)

	Context("CopyVerbatim", func() {
		var src string

		BeforeEach(func() {
			src = filepath.Join(tempDir, "image-0003.pnm")
			Expect(os.WriteFile(src, []byte("P5 raw bytes \x00\x01\x02"), 0640)).To(Succeed())
			old := time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC)
			Expect(os.Chtimes(src, old, old)).To(Succeed())
		})

		It("should copy the bytes, name and modification time", func() {
			dst, err := r.CopyVerbatim(src)
			Expect(err).NotTo(HaveOccurred())
			Expect(dst).To(Equal(filepath.Join(dirs.Failed, "image-0003.pnm")))

			want, _ := os.ReadFile(src)
			got, err := os.ReadFile(dst)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))

			info, err := os.Stat(dst)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.ModTime().Equal(time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC))).To(BeTrue())
		})

		It("should not overwrite a file already in the failed directory", func() {
			_, err := r.CopyVerbatim(src)
			Expect(err).NotTo(HaveOccurred())
			_, err = r.CopyVerbatim(src)
			Expect(err).To(HaveOccurred())
		})

		It("should fail for a missing source", func() {
			_, err := r.CopyVerbatim(filepath.Join(tempDir, "missing.pnm"))
			Expect(err).To(HaveOccurred())
		})
	})

	It("should write a trace next to the artifact", func() {
		artifact := filepath.Join(dirs.Failed, "image-0003.pnm")
		Expect(router.TracePath(artifact)).To(Equal(filepath.Join(dirs.Failed, "image-0003-log.txt")))

		Expect(r.WriteTrace(artifact, []string{"line one", "line two"})).To(Succeed())
		body, err := os.ReadFile(router.TracePath(artifact))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(Equal("line one\nline two\n"))
	})
})
