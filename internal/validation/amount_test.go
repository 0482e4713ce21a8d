package validation

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExtractAmount", func() {
	var (
		text     string
		accepted *AmountSet
		amount   int
		found    bool
	)

	BeforeEach(func() {
		accepted = nil
	})

	JustBeforeEach(func() {
		amount, found = ExtractAmount(text, accepted)
	})

	When("the amount is labelled with valor", func() {
		BeforeEach(func() {
			text = "valor: R$ 20,00"
		})

		It("should return the whole amount", func() {
			Expect(found).To(BeTrue())
			Expect(amount).To(Equal(20))
		})

		When("the accepted set contains it", func() {
			BeforeEach(func() {
				accepted = NewAmountSet(10, 20, 30)
			})

			It("should return the same amount", func() {
				Expect(found).To(BeTrue())
				Expect(amount).To(Equal(20))
			})
		})
	})

	When("the amount has cents", func() {
		BeforeEach(func() {
			text = "R$ 24,99"
		})

		It("should truncate instead of rounding", func() {
			Expect(amount).To(Equal(24))
		})
	})

	When("the amount uses a decimal point", func() {
		BeforeEach(func() {
			text = "total r$ 15.50"
		})

		It("should parse it", func() {
			Expect(found).To(BeTrue())
			Expect(amount).To(Equal(15))
		})
	})

	When("a labelled amount follows an unlabelled one", func() {
		BeforeEach(func() {
			text = "tarifa r$ 2,50 ... valor do pix: r$ 0,00 ... total: r$ 30,00"
		})

		It("should prefer the labelled amount", func() {
			Expect(amount).To(Equal(30))
		})
	})

	When("an unlabelled amount appears before a priority phrase", func() {
		BeforeEach(func() {
			text = "saldo r$ 99,90 pagamento: r$ 10,00"
		})

		It("should return the priority amount", func() {
			Expect(amount).To(Equal(10))
		})
	})

	When("several priority amounts are present", func() {
		BeforeEach(func() {
			text = "total: r$ 25,00 valor: r$ 18,00"
		})

		It("should follow the rule order, not the text order", func() {
			Expect(amount).To(Equal(18))
		})
	})

	When("the accepted set rules out the first candidate", func() {
		BeforeEach(func() {
			text = "valor: r$ 7,00 valor: r$ 22,00"
			accepted = NewAmountSet(22)
		})

		It("should move on to the next match", func() {
			Expect(found).To(BeTrue())
			Expect(amount).To(Equal(22))
		})
	})

	When("only a general amount is accepted", func() {
		BeforeEach(func() {
			text = "valor: r$ 5,00 tarifa r$ 29,00"
			accepted = NewAmountSet(29)
		})

		It("should fall back to the general tier", func() {
			Expect(found).To(BeTrue())
			Expect(amount).To(Equal(29))
		})
	})

	When("no candidate is accepted", func() {
		BeforeEach(func() {
			text = "valor r$ 5,00"
			accepted = NewAmountSet(10, 20, 30)
		})

		It("should report nothing found", func() {
			Expect(found).To(BeFalse())
			Expect(amount).To(BeZero())
		})
	})

	When("there is no currency marker", func() {
		BeforeEach(func() {
			text = "transferencia realizada em 05/06/2025 codigo 123"
		})

		It("should report nothing found", func() {
			Expect(found).To(BeFalse())
		})
	})

	When("the text is empty", func() {
		BeforeEach(func() {
			text = ""
		})

		It("should report nothing found", func() {
			Expect(found).To(BeFalse())
		})
	})

	When("called twice on the same text", func() {
		BeforeEach(func() {
			text = "pagamento: r$ 10,00"
		})

		It("should return the same result", func() {
			again, againFound := ExtractAmount(text, accepted)
			Expect(againFound).To(Equal(found))
			Expect(again).To(Equal(amount))
		})
	})

	DescribeTable("individual rules",
		func(text string, expected int) {
			amount, found := ExtractAmount(text, nil)
			Expect(found).To(BeTrue())
			Expect(amount).To(Equal(expected))
		},
		Entry("valor", "valor r$ 10,00", 10),
		Entry("total", "total: r$ 20,00", 20),
		Entry("valor annotation", "r$ 30,00 (valor original)", 30),
		Entry("pagamento", "pagamento r$15,00", 15),
		Entry("valor do pagamento", "valor do pagamento: r$ 25,00", 25),
		Entry("currency marker", "r$ 18,00", 18),
		Entry("reais", "22,00 reais", 22),
		Entry("rs", "rs 200,00", 200),
		Entry("upper case", "VALOR: R$ 29,90", 29),
	)
})

var _ = Describe("amountRules", func() {
	It("should list every priority rule before any general rule", func() {
		seenGeneral := false
		for _, r := range amountRules {
			if r.tier == TierGeneral {
				seenGeneral = true
				continue
			}
			Expect(seenGeneral).To(BeFalse(), "priority rule %s listed after a general rule", r.name)
		}
	})
})

var _ = Describe("AmountSet", func() {
	Describe("ParseAmountSet", func() {
		It("should parse a comma separated list", func() {
			set, err := ParseAmountSet("10, 20,30")
			Expect(err).NotTo(HaveOccurred())
			Expect(set.Values()).To(Equal([]int{10, 20, 30}))
		})

		It("should return a nil set for an empty list", func() {
			set, err := ParseAmountSet("  ")
			Expect(err).NotTo(HaveOccurred())
			Expect(set).To(BeNil())
			Expect(set.Configured()).To(BeFalse())
		})

		It("should reject non numeric entries", func() {
			_, err := ParseAmountSet("10,abc")
			Expect(err).To(HaveOccurred())
		})

		It("should reject negative entries", func() {
			_, err := ParseAmountSet("-5")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Allows", func() {
		It("should allow anything when no set is configured", func() {
			var set *AmountSet
			Expect(set.Allows(12345)).To(BeTrue())
		})

		It("should allow only members of a configured set", func() {
			set := NewAmountSet(10, 20)
			Expect(set.Allows(10)).To(BeTrue())
			Expect(set.Allows(15)).To(BeFalse())
		})
	})
})
