package vault

import (
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// hookKV wraps mockKV to observe reads of individual keys
type hookKV struct {
	*mockKV
	onGet func(key string)
}

func (h *hookKV) Get(key string) (string, error) {
	if h.onGet != nil {
		h.onGet(key)
	}
	return h.mockKV.Get(key)
}

var _ = Describe("RunAutoClean", func() {
	var (
		records  *mockRecords
		images   *mockImages
		settings *mockSettings
		timeSrc  *mockTimeSource
		service  *Service

		result CleanResult
		err    error
	)

	BeforeEach(func() {
		records = newMockRecords()
		images = newMockImages()
		settings = newMockSettings()
		// cutoff lands on 2024-02-01
		timeSrc = &mockTimeSource{now: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)}
		settings.autoClean = AutoCleanSettings{Enabled: true, Days: 30}
		service = NewServiceWithDeps(records, images, settings, &mockIDGenerator{id: "x"}, timeSrc)
	})

	JustBeforeEach(func() {
		result, err = service.RunAutoClean()
	})

	When("receipts straddle the cutoff", func() {
		BeforeEach(func() {
			images.blobs["receipt_image_1_mock"] = []byte("old image")
			records.receipts = []Receipt{
				{ID: "old", Vendor: "Cafe", Amount: 1, Date: "2024-01-31", ImageURI: "receipt_image_1_mock"},
				{ID: "new", Vendor: "Market", Amount: 2, Date: "2024-02-02"},
			}
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("removes exactly the older receipt", func() {
			Expect(result.DeletedCount).To(Equal(1))
			Expect(records.receipts).To(HaveLen(1))
			Expect(records.receipts[0].ID).To(Equal("new"))
		})

		It("persists the kept collection in one write", func() {
			Expect(records.rewrote).To(BeTrue())
			Expect(records.keptAfterRemove).To(HaveLen(1))
		})

		It("releases the old receipt's managed image", func() {
			Expect(result.TotalDeleted).To(Equal(1))
			Expect(images.blobs).NotTo(HaveKey("receipt_image_1_mock"))
		})
	})

	When("auto-clean is disabled", func() {
		BeforeEach(func() {
			settings.autoClean.Enabled = false
			records.receipts = []Receipt{
				{ID: "ancient", Vendor: "Cafe", Amount: 1, Date: "1999-01-01"},
			}
		})

		It("is a no-op", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(CleanResult{}))
			Expect(records.receipts).To(HaveLen(1))
		})
	})

	When("no receipt is older than the cutoff", func() {
		BeforeEach(func() {
			records.receipts = []Receipt{
				{ID: "new", Vendor: "Market", Amount: 2, Date: "2024-02-02"},
			}
		})

		It("writes nothing", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(CleanResult{}))
			Expect(records.rewrote).To(BeFalse())
		})
	})

	When("a receipt has a malformed date", func() {
		BeforeEach(func() {
			records.receipts = []Receipt{
				{ID: "bad", Vendor: "Cafe", Amount: 1, Date: "sometime"},
				{ID: "old", Vendor: "Market", Amount: 2, Date: "2023-12-01"},
			}
		})

		It("never auto-cleans it", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.DeletedCount).To(Equal(1))
			Expect(records.receipts).To(HaveLen(1))
			Expect(records.receipts[0].ID).To(Equal("bad"))
		})
	})

	When("an old receipt holds an external image URI", func() {
		BeforeEach(func() {
			records.receipts = []Receipt{
				{ID: "old", Vendor: "Cafe", Amount: 1, Date: "2024-01-31", ImageURI: "https://example.com/a.jpg"},
			}
		})

		It("deletes the receipt without touching blobs", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.DeletedCount).To(Equal(1))
			Expect(result.TotalDeleted).To(BeZero())
		})
	})

	When("a blob release fails", func() {
		BeforeEach(func() {
			records.receipts = []Receipt{
				{ID: "old", Vendor: "Cafe", Amount: 1, Date: "2024-01-31", ImageURI: "receipt_image_1_mock"},
			}
			images.deleteErr = errors.New("blob error")
		})

		It("keeps the receipt deleted and continues", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.DeletedCount).To(Equal(1))
			Expect(result.TotalDeleted).To(BeZero())
			Expect(records.receipts).To(BeEmpty())
		})
	})

	When("persisting the kept collection fails", func() {
		var setupErr error

		BeforeEach(func() {
			setupErr = errors.New("write error")
			records.removeMatchingErr = setupErr
			records.receipts = []Receipt{
				{ID: "old", Vendor: "Cafe", Amount: 1, Date: "2024-01-31"},
			}
		})

		It("returns the error without counting deletions", func() {
			Expect(err).To(MatchError(setupErr))
			Expect(result).To(Equal(CleanResult{}))
		})
	})

	When("a run is already in progress", func() {
		BeforeEach(func() {
			service.cleanMu.Lock()
		})

		AfterEach(func() {
			service.cleanMu.Unlock()
		})

		It("is rejected with ErrCleanRunning", func() {
			Expect(err).To(MatchError(ErrCleanRunning))
		})
	})
})

var _ = Describe("RunAutoClean interleaved with saves", func() {
	It("keeps a receipt saved while a clean is in flight", func() {
		kv := &hookKV{mockKV: newMockKV()}
		repo := NewRepository(kv)
		settings := NewSettings(kv)
		Expect(settings.SaveAutoClean(AutoCleanSettings{Enabled: true, Days: 30})).To(Succeed())
		timeSrc := &mockTimeSource{now: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)}
		service := NewServiceWithDeps(repo, NewImageStore(kv), settings, &mockIDGenerator{id: "x"}, timeSrc)

		old := Receipt{ID: "old", Vendor: "Cafe", Amount: 1, Date: "2024-01-31"}
		Expect(repo.SaveReceipt(&old)).To(Succeed())

		// Start a competing save while the clean is reading the
		// collection. The save must block on the writer lock and land
		// after the kept set is persisted, not be overwritten by it.
		var wg sync.WaitGroup
		fired := false
		kv.onGet = func(key string) {
			if key != receiptsKey || fired {
				return
			}
			fired = true
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				fresh := Receipt{ID: "fresh", Vendor: "Market", Amount: 2, Date: "2024-02-20"}
				Expect(repo.SaveReceipt(&fresh)).To(Succeed())
			}()
			// give the save a chance to reach the lock
			time.Sleep(20 * time.Millisecond)
		}

		result, err := service.RunAutoClean()
		wg.Wait()

		Expect(err).NotTo(HaveOccurred())
		Expect(result.DeletedCount).To(Equal(1))

		receipts, err := repo.Receipts()
		Expect(err).NotTo(HaveOccurred())
		Expect(receipts).To(HaveLen(1))
		Expect(receipts[0].ID).To(Equal("fresh"))
	})
})
