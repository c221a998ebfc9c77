package sequence_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/consentsort/internal/sequence"
)

var _ = Describe("Extract", func() {
	DescribeTable("trailing digit run",
		func(name string, expected int, found bool) {
			seq, ok := sequence.Extract(name)
			Expect(ok).To(Equal(found))
			Expect(seq).To(Equal(expected))
		},
		Entry("scanner default name", "image-0007.pnm", 7, true),
		Entry("last run wins", "batch12-image-0003.pnm", 3, true),
		Entry("run inside the stem", "scan42final.pnm", 42, true),
		Entry("only the base name counts", "/data/run2024/page.pnm", 0, false),
		Entry("no digits", "cover.pnm", 0, false),
		Entry("leading zeros", "0000.pnm", 0, true),
	)
})
