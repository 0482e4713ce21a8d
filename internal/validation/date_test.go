package validation

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NewDate", func() {
	It("should build real dates", func() {
		d, ok := NewDate(2024, time.February, 29)
		Expect(ok).To(BeTrue())
		Expect(d).To(Equal(Date{Year: 2024, Month: time.February, Day: 29}))
	})

	It("should reject the 29th of February in a common year", func() {
		_, ok := NewDate(2025, time.February, 29)
		Expect(ok).To(BeFalse())
	})

	It("should reject the 31st of a 30 day month", func() {
		_, ok := NewDate(2025, time.April, 31)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Date", func() {
	It("should format as YYYY-MM-DD", func() {
		Expect(Date{Year: 2025, Month: time.June, Day: 5}.String()).To(Equal("2025-06-05"))
	})

	It("should take the calendar day of a time in its location", func() {
		loc := time.FixedZone("BRT", -3*60*60)
		t := time.Date(2025, time.June, 6, 1, 30, 0, 0, time.UTC).In(loc)
		Expect(DateOf(t)).To(Equal(Date{Year: 2025, Month: time.June, Day: 5}))
	})

	It("should order dates", func() {
		earlier := Date{Year: 2025, Month: time.June, Day: 5}
		later := Date{Year: 2025, Month: time.July, Day: 1}
		Expect(later.After(earlier)).To(BeTrue())
		Expect(earlier.After(later)).To(BeFalse())
		Expect(earlier.After(earlier)).To(BeFalse())
	})

	It("should survive a JSON round trip", func() {
		d := Date{Year: 2025, Month: time.June, Day: 5}
		data, err := json.Marshal(d)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`"2025-06-05"`))

		var decoded Date
		Expect(json.Unmarshal(data, &decoded)).To(Succeed())
		Expect(decoded).To(Equal(d))
	})
})

var _ = Describe("ExtractDate", func() {
	var (
		text  string
		date  Date
		found bool
	)

	JustBeforeEach(func() {
		date, found = ExtractDate(text)
	})

	When("the date does not exist", func() {
		BeforeEach(func() {
			text = "pago em 31/02/2025"
		})

		It("should not construct a date", func() {
			Expect(found).To(BeFalse())
		})
	})

	When("the date is a leap day", func() {
		BeforeEach(func() {
			text = "pago em 29/02/2024"
		})

		It("should return it", func() {
			Expect(found).To(BeTrue())
			Expect(date).To(Equal(Date{Year: 2024, Month: time.February, Day: 29}))
		})
	})

	When("the year has two digits", func() {
		BeforeEach(func() {
			text = "data 10/05/24"
		})

		It("should expand it into the 2000s", func() {
			Expect(found).To(BeTrue())
			Expect(date).To(Equal(Date{Year: 2024, Month: time.May, Day: 10}))
		})
	})

	When("a four digit year is out of range", func() {
		BeforeEach(func() {
			text = "emitido em 05/06/2019"
		})

		It("should not read the first two digits of the year as a short year", func() {
			Expect(found).To(BeFalse())
		})
	})

	When("an invalid date precedes a valid one", func() {
		BeforeEach(func() {
			text = "vencimento 31/04/2025 pagamento 05/06/2025"
		})

		It("should skip the invalid one", func() {
			Expect(found).To(BeTrue())
			Expect(date).To(Equal(Date{Year: 2025, Month: time.June, Day: 5}))
		})
	})

	When("a month name date and a numeric date are both present", func() {
		BeforeEach(func() {
			text = "01/06/2025 ... 17 out 2025"
		})

		It("should prefer the month name rule", func() {
			Expect(date).To(Equal(Date{Year: 2025, Month: time.October, Day: 17}))
		})
	})

	When("the text has no date", func() {
		BeforeEach(func() {
			text = "valor: r$ 20,00"
		})

		It("should report nothing found", func() {
			Expect(found).To(BeFalse())
		})
	})

	When("called twice on the same text", func() {
		BeforeEach(func() {
			text = "pagamento em 05/06/2025"
		})

		It("should return the same result", func() {
			again, againFound := ExtractDate(text)
			Expect(againFound).To(Equal(found))
			Expect(again).To(Equal(date))
		})
	})

	DescribeTable("formats",
		func(text string, expected Date) {
			date, found := ExtractDate(text)
			Expect(found).To(BeTrue())
			Expect(date).To(Equal(expected))
		},
		Entry("portuguese abbreviation", "17 out 2025", Date{2025, time.October, 17}),
		Entry("english abbreviation", "17 OCT 2025", Date{2025, time.October, 17}),
		Entry("portuguese full name", "5 de junho de 2025", Date{2025, time.June, 5}),
		Entry("portuguese cedilla", "3 março 2026", Date{2026, time.March, 3}),
		Entry("english full name", "1 december 2025", Date{2025, time.December, 1}),
		Entry("no spaces", "09dez2025", Date{2025, time.December, 9}),
		Entry("slashes", "05/06/2025", Date{2025, time.June, 5}),
		Entry("dashes", "05-06-2025", Date{2025, time.June, 5}),
		Entry("dots", "05.06.2025", Date{2025, time.June, 5}),
		Entry("iso", "2025-06-05", Date{2025, time.June, 5}),
		Entry("short year", "5/6/25", Date{2025, time.June, 5}),
	)
})

var _ = Describe("DateStrategy", func() {
	const text = "emissao 01/06/2025 pagamento 2025-06-05 vencimento 03-06-2025"

	It("should return the first date in rule order by default", func() {
		date, found := FirstMatch.Extract(text)
		Expect(found).To(BeTrue())
		Expect(date).To(Equal(Date{2025, time.June, 1}))
	})

	It("should return the most recent date with Latest", func() {
		date, found := Latest.Extract(text)
		Expect(found).To(BeTrue())
		Expect(date).To(Equal(Date{2025, time.June, 5}))
	})

	DescribeTable("ParseDateStrategy",
		func(input string, expected DateStrategy, fails bool) {
			strategy, err := ParseDateStrategy(input)
			if fails {
				Expect(err).To(HaveOccurred())
				return
			}
			Expect(err).NotTo(HaveOccurred())
			Expect(strategy).To(Equal(expected))
		},
		Entry("empty", "", FirstMatch, false),
		Entry("first", "first", FirstMatch, false),
		Entry("latest", "LATEST", Latest, false),
		Entry("unknown", "oldest", FirstMatch, true),
	)
})
