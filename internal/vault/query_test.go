package vault

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Derivations", func() {
	var receipts []Receipt

	BeforeEach(func() {
		receipts = []Receipt{
			{ID: "r1", Vendor: "Cafe", Amount: 12.5, Date: "2024-01-10", Tags: []string{"Food"}},
			{ID: "r2", Vendor: "Rail", Amount: 40, Date: "2024-02-01", Tags: []string{"Travel"}},
			{ID: "r3", Vendor: "Hotel", Amount: 100, Date: "2024-01-20", Tags: []string{"Travel", "Work"}},
		}
	})

	Describe("TotalSpending", func() {
		It("sums all amounts", func() {
			Expect(TotalSpending(receipts)).To(Equal(152.5))
		})

		It("returns zero for empty input", func() {
			Expect(TotalSpending(nil)).To(BeZero())
		})
	})

	Describe("SpendingByCategory", func() {
		It("buckets amounts per tag", func() {
			spending := SpendingByCategory(receipts)
			Expect(spending).To(HaveKeyWithValue("Food", 12.5))
			Expect(spending).To(HaveKeyWithValue("Travel", 140.0))
			Expect(spending).To(HaveKeyWithValue("Work", 100.0))
		})

		It("counts a multi-tag receipt fully in every bucket", func() {
			multi := []Receipt{
				{ID: "r1", Amount: 10, Date: "2024-01-10", Tags: []string{"A", "B"}},
			}
			spending := SpendingByCategory(multi)
			Expect(spending["A"]).To(Equal(10.0))
			Expect(spending["B"]).To(Equal(10.0))
			Expect(TotalSpending(multi)).To(Equal(10.0))
		})

		It("returns an empty map for empty input", func() {
			Expect(SpendingByCategory(nil)).To(BeEmpty())
		})
	})

	Describe("RecentReceipts", func() {
		It("returns the newest receipts first", func() {
			recent := RecentReceipts(receipts, 2)
			Expect(recent).To(HaveLen(2))
			Expect(recent[0].ID).To(Equal("r2"))
			Expect(recent[1].ID).To(Equal("r3"))
		})

		It("does not mutate the input order", func() {
			RecentReceipts(receipts, 3)
			Expect(receipts[0].ID).To(Equal("r1"))
			Expect(receipts[1].ID).To(Equal("r2"))
		})

		It("never totals more than the full collection", func() {
			for n := 0; n <= len(receipts)+1; n++ {
				Expect(TotalSpending(RecentReceipts(receipts, n))).To(
					BeNumerically("<=", TotalSpending(receipts)))
			}
		})

		It("caps the limit at the collection size", func() {
			Expect(RecentReceipts(receipts, 10)).To(HaveLen(3))
		})

		It("sorts malformed dates as oldest", func() {
			withBad := append([]Receipt{{ID: "bad", Amount: 1, Date: "not-a-date"}}, receipts...)
			recent := RecentReceipts(withBad, 4)
			Expect(recent[3].ID).To(Equal("bad"))
		})
	})

	Describe("MonthlySpending", func() {
		It("sums receipts within the zero-based month", func() {
			Expect(MonthlySpending(receipts, 2024, 0)).To(Equal(112.5))
			Expect(MonthlySpending(receipts, 2024, 1)).To(Equal(40.0))
		})

		It("returns zero when nothing matches", func() {
			Expect(MonthlySpending(receipts, 2023, 0)).To(BeZero())
		})
	})

	Describe("FilterByMonth", func() {
		It("skips receipts with malformed dates", func() {
			withBad := append(receipts, Receipt{ID: "bad", Amount: 1, Date: "yesterday"})
			Expect(FilterByMonth(withBad, 2024, 0)).To(HaveLen(2))
		})
	})

	Describe("FilterByTag", func() {
		It("preserves input order", func() {
			filtered := FilterByTag(receipts, "Travel")
			Expect(filtered).To(HaveLen(2))
			Expect(filtered[0].ID).To(Equal("r2"))
			Expect(filtered[1].ID).To(Equal("r3"))
		})
	})
})
