package receipt

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	newReceipt := func(id string) *Receipt {
		return &Receipt{
			ID:                id,
			StoreNameScanned:  "Walmart Supercenter",
			StoreNameSelected: "Walmart",
			BillingDate:       time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
			UploadDate:        time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC),
			Total:             decimal.RequireFromString("9.46"),
			Items: []LineItem{
				{Name: "Milk", Quantity: 1, TotalPrice: decimal.RequireFromString("3.49")},
			},
			Filename:    "test.jpg",
			ContentType: "image/jpeg",
			CreatedAt:   time.Now().UTC(),
			UpdatedAt:   time.Now().UTC(),
		}
	}

	Describe("SaveReceipt", func() {
		var (
			receipt *Receipt
			err     error
		)

		BeforeEach(func() {
			receipt = newReceipt("test-id")
		})

		JustBeforeEach(func() {
			err = db.SaveReceipt(receipt)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should save the receipt to the database", func() {
				saved, getErr := db.GetReceipt("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.ID).To(Equal("test-id"))
			})

			It("should round-trip the decimal total", func() {
				saved, _ := db.GetReceipt("test-id")
				Expect(saved.Total.Equal(decimal.RequireFromString("9.46"))).To(BeTrue())
			})

			It("should round-trip the line items", func() {
				saved, _ := db.GetReceipt("test-id")
				Expect(saved.Items).To(HaveLen(1))
				Expect(saved.Items[0].Name).To(Equal("Milk"))
			})
		})

		When("saving an existing ID", func() {
			BeforeEach(func() {
				first := newReceipt("test-id")
				first.StoreNameSelected = "Target"
				Expect(db.SaveReceipt(first)).NotTo(HaveOccurred())
			})

			It("should overwrite the stored receipt", func() {
				Expect(err).NotTo(HaveOccurred())
				saved, _ := db.GetReceipt("test-id")
				Expect(saved.StoreNameSelected).To(Equal("Walmart"))
			})
		})
	})

	Describe("GetReceipt", func() {
		When("receipt exists", func() {
			BeforeEach(func() {
				Expect(db.SaveReceipt(newReceipt("test-id"))).NotTo(HaveOccurred())
			})

			It("should return the receipt", func() {
				receipt, err := db.GetReceipt("test-id")
				Expect(err).NotTo(HaveOccurred())
				Expect(receipt.StoreNameScanned).To(Equal("Walmart Supercenter"))
			})
		})

		When("receipt does not exist", func() {
			It("returns a not found error", func() {
				_, err := db.GetReceipt("nonexistent")
				Expect(err).To(MatchError(ErrNotFound))
			})
		})
	})

	Describe("ListReceipts", func() {
		When("receipts exist", func() {
			BeforeEach(func() {
				Expect(db.SaveReceipt(newReceipt("id1"))).NotTo(HaveOccurred())
				Expect(db.SaveReceipt(newReceipt("id2"))).NotTo(HaveOccurred())
			})

			It("should return all receipts", func() {
				receipts, err := db.ListReceipts()
				Expect(err).NotTo(HaveOccurred())
				Expect(receipts).To(HaveLen(2))
			})
		})

		When("no receipts exist", func() {
			It("should return an empty list", func() {
				receipts, err := db.ListReceipts()
				Expect(err).NotTo(HaveOccurred())
				Expect(receipts).To(BeEmpty())
			})
		})
	})

	Describe("DeleteReceipt", func() {
		When("receipt exists", func() {
			BeforeEach(func() {
				Expect(db.SaveReceipt(newReceipt("test-id"))).NotTo(HaveOccurred())
			})

			It("should remove the receipt from the database", func() {
				Expect(db.DeleteReceipt("test-id")).NotTo(HaveOccurred())
				_, err := db.GetReceipt("test-id")
				Expect(err).To(MatchError(ErrNotFound))
			})
		})

		When("receipt does not exist", func() {
			It("returns a not found error", func() {
				Expect(db.DeleteReceipt("nonexistent")).To(MatchError(ErrNotFound))
			})
		})
	})

	Describe("reference lists", func() {
		It("seeds the default stores on first open", func() {
			stores, err := db.ListStores()
			Expect(err).NotTo(HaveOccurred())
			Expect(stores).To(Equal([]string{"Costco", "Kroger", "Target", "Walmart", "Whole Foods"}))
		})

		It("seeds the default units on first open", func() {
			units, err := db.ListUnits()
			Expect(err).NotTo(HaveOccurred())
			Expect(units).To(Equal([]string{"ct", "ea", "g", "kg", "l", "lb", "lbs", "ml", "oz", "pcs"}))
		})

		It("replaces the store list on save", func() {
			Expect(db.SaveStores([]string{"Aldi", "Lidl"})).NotTo(HaveOccurred())
			stores, err := db.ListStores()
			Expect(err).NotTo(HaveOccurred())
			Expect(stores).To(Equal([]string{"Aldi", "Lidl"}))
		})

		It("replaces the unit list on save", func() {
			Expect(db.SaveUnits([]string{"ea"})).NotTo(HaveOccurred())
			units, err := db.ListUnits()
			Expect(err).NotTo(HaveOccurred())
			Expect(units).To(Equal([]string{"ea"}))
		})

		It("does not reseed a saved list on reopen", func() {
			Expect(db.SaveStores([]string{"Aldi"})).NotTo(HaveOccurred())
			Expect(db.Close()).NotTo(HaveOccurred())

			reopened, err := NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer reopened.Close()
			db = nil

			stores, err := reopened.ListStores()
			Expect(err).NotTo(HaveOccurred())
			Expect(stores).To(Equal([]string{"Aldi"}))
		})
	})

	Describe("Close", func() {
		It("should not return an error", func() {
			Expect(db.Close()).NotTo(HaveOccurred())
			db = nil
		})
	})
})
