package receipt

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		var (
			filename  string
			imageData []byte
			savedPath string
			err       error
		)

		BeforeEach(func() {
			filename = "1742000000_grocery-receipt.jpg"
			imageData = []byte("fake receipt image")
		})

		JustBeforeEach(func() {
			savedPath, err = storage.Save(filename, imageData)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the filename as the stored path", func() {
				Expect(savedPath).To(Equal(filename))
			})

			It("should write the image to disk", func() {
				Expect(filepath.Join(tmpDir, filename)).To(BeAnExistingFile())
			})
		})

		When("overwriting an existing image", func() {
			BeforeEach(func() {
				_, saveErr := storage.Save(filename, []byte("older upload"))
				Expect(saveErr).NotTo(HaveOccurred())
			})

			It("should replace the content", func() {
				Expect(err).NotTo(HaveOccurred())
				stored, getErr := storage.Get(filename)
				Expect(getErr).NotTo(HaveOccurred())
				Expect(stored).To(Equal(imageData))
			})
		})
	})

	Describe("Get", func() {
		var (
			filename  string
			imageData []byte
			err       error
		)

		JustBeforeEach(func() {
			imageData, err = storage.Get(filename)
		})

		When("the image exists", func() {
			BeforeEach(func() {
				filename = "1742000000_grocery-receipt.jpg"
				_, saveErr := storage.Save(filename, []byte("fake receipt image"))
				Expect(saveErr).NotTo(HaveOccurred())
			})

			It("should return the stored bytes", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(string(imageData)).To(Equal("fake receipt image"))
			})
		})

		When("the image does not exist", func() {
			BeforeEach(func() {
				filename = "missing.jpg"
			})

			It("returns the error", func() {
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("reading file"))
			})
		})
	})

	Describe("Delete", func() {
		var (
			filename string
			err      error
		)

		JustBeforeEach(func() {
			err = storage.Delete(filename)
		})

		When("the image exists", func() {
			BeforeEach(func() {
				filename = "1742000000_grocery-receipt.jpg"
				_, saveErr := storage.Save(filename, []byte("fake receipt image"))
				Expect(saveErr).NotTo(HaveOccurred())
			})

			It("should remove the image from disk", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(filepath.Join(tmpDir, filename)).NotTo(BeAnExistingFile())
			})

			It("should make the image inaccessible via Get", func() {
				_, getErr := storage.Get(filename)
				Expect(getErr).To(HaveOccurred())
			})
		})

		When("the image does not exist", func() {
			BeforeEach(func() {
				filename = "missing.jpg"
			})

			It("returns the error", func() {
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("deleting file"))
			})
		})
	})

	Describe("NewLocalStorage", func() {
		When("the directory does not exist yet", func() {
			It("should create it and accept uploads", func() {
				base := GinkgoT().TempDir()
				path := filepath.Join(base, "receipts")

				created, err := NewLocalStorage(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(path).To(BeADirectory())

				_, saveErr := created.Save("receipt.jpg", []byte("data"))
				Expect(saveErr).NotTo(HaveOccurred())
			})
		})
	})
})
