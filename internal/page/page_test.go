package page_test

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/consentsort/internal/page"
	"github.com/kpauljoseph/consentsort/pkg/logger"
)

func uniform(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func pageTestLogger() *logger.Logger {
	return logger.New(
		logger.WithOutput(GinkgoWriter),
		logger.WithPrefix("[page-test] "),
		logger.WithFlags(0),
		logger.WithLevel(logger.LevelDebug),
	)
}

var _ = Describe("Page", func() {
	Context("Fill ratio", func() {
		It("should be zero for a white page and one for a black page", func() {
			Expect(page.Fill(uniform(40, 30, 255), 0.65)).To(BeNumerically("~", 0, 1e-9))
			Expect(page.Fill(uniform(40, 30, 0), 0.65)).To(BeNumerically("~", 1, 1e-9))
		})

		It("should count only pixels below the black level", func() {
			img := uniform(10, 10, 255)
			for x := 0; x < 10; x++ {
				img.SetGray(x, 0, color.Gray{Y: 100})
				img.SetGray(x, 1, color.Gray{Y: 200})
			}
			Expect(page.Fill(img, 0.65)).To(BeNumerically("~", 0.1, 1e-9))
		})

		It("should be reproducible for identical pixels", func() {
			img := uniform(64, 64, 255)
			for i := 0; i < len(img.Pix); i += 7 {
				img.Pix[i] = 10
			}
			first := page.Fill(img, 0.65)
			Expect(page.Fill(img, 0.65)).To(Equal(first))
			Expect(page.Fill(page.Grayscale(img), 0.65)).To(Equal(first))
		})

		It("should treat a page as empty up to the threshold", func() {
			img := uniform(100, 1, 255)
			img.Pix[0], img.Pix[1] = 0, 0
			Expect(page.HasContent(img, 0.65, 0.02)).To(BeFalse())
			img.Pix[2] = 0
			Expect(page.HasContent(img, 0.65, 0.02)).To(BeTrue())
		})

		It("should measure a sub-image over its own bounds", func() {
			img := uniform(20, 20, 255)
			for x := 10; x < 20; x++ {
				for y := 0; y < 20; y++ {
					img.SetGray(x, y, color.Gray{})
				}
			}
			right := img.SubImage(image.Rect(10, 0, 20, 20)).(*image.Gray)
			Expect(page.Fill(right, 0.65)).To(BeNumerically("~", 1, 1e-9))
		})
	})

	DescribeTable("Orientation",
		func(side float64, rotate bool) {
			Expect(page.NeedsRotation(side)).To(Equal(rotate))
		},
		Entry("far left", 0.0, true),
		Entry("exactly half", 0.5, true),
		Entry("just past half", 0.5000001, false),
		Entry("far right", 0.9, false),
	)

	It("should rotate pixels by 180 degrees", func() {
		img := uniform(4, 3, 255)
		img.SetGray(0, 0, color.Gray{Y: 7})
		img.SetGray(1, 2, color.Gray{Y: 9})

		rotated := page.Rotate180(img)
		Expect(rotated.Bounds()).To(Equal(img.Bounds()))
		Expect(rotated.GrayAt(3, 2).Y).To(Equal(uint8(7)))
		Expect(rotated.GrayAt(2, 0).Y).To(Equal(uint8(9)))
		Expect(page.Rotate180(rotated).Pix).To(Equal(img.Pix))
	})

	Context("Loader", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "consentsort-page-*")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(os.RemoveAll(tempDir)).To(Succeed())
		})

		writePNG := func(path string, img image.Image) {
			f, err := os.Create(path)
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()
			Expect(png.Encode(f, img)).To(Succeed())
		}

		It("should load a raster page as grayscale", func() {
			src := image.NewRGBA(image.Rect(0, 0, 8, 6))
			for i := range src.Pix {
				src.Pix[i] = 255
			}
			path := filepath.Join(tempDir, "image-0001.png")
			writePNG(path, src)

			res := page.NewLoader(0, pageTestLogger()).Load(path)
			Expect(res.OK()).To(BeTrue())
			Expect(res.Image.Bounds().Dx()).To(Equal(8))
			Expect(res.Image.Bounds().Dy()).To(Equal(6))
			Expect(page.Fill(res.Image, 0.65)).To(BeNumerically("~", 0, 1e-9))
		})

		It("should load a netpbm page", func() {
			path := filepath.Join(tempDir, "image-0002.pnm")
			// 2x2 graymap, one black pixel.
			Expect(os.WriteFile(path, []byte("P2\n2 2\n255\n0 255\n255 255\n"), 0644)).To(Succeed())

			res := page.NewLoader(0, pageTestLogger()).Load(path)
			Expect(res.OK()).To(BeTrue())
			Expect(page.Fill(res.Image, 0.65)).To(BeNumerically("~", 0.25, 1e-9))
		})

		It("should report an unreadable page after two attempts", func() {
			path := filepath.Join(tempDir, "image-0003.png")
			Expect(os.WriteFile(path, []byte("not an image"), 0644)).To(Succeed())

			res := page.NewLoader(time.Millisecond, pageTestLogger()).Load(path)
			Expect(res.OK()).To(BeFalse())
			Expect(res.Image).To(BeNil())

			var loadErr *page.LoadError
			Expect(errors.As(res.Err, &loadErr)).To(BeTrue())
			Expect(loadErr.Attempts).To(Equal(2))
			Expect(loadErr.Path).To(Equal(path))
		})

		It("should pick up a page that appears during the retry delay", func() {
			path := filepath.Join(tempDir, "image-0004.png")
			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				defer close(done)
				time.Sleep(50 * time.Millisecond)
				writePNG(path, uniform(5, 5, 0))
			}()

			res := page.NewLoader(500*time.Millisecond, pageTestLogger()).Load(path)
			<-done
			Expect(res.OK()).To(BeTrue())
			Expect(page.Fill(res.Image, 0.65)).To(BeNumerically("~", 1, 1e-9))
		})
	})
})
