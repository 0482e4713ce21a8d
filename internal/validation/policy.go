package validation

// Reason explains a validation outcome.
type Reason string

const (
	ReasonOK                Reason = "ok"
	ReasonUnsupportedType   Reason = "unsupported_type"
	ReasonAmountNotFound    Reason = "amount_not_found"
	ReasonDateNotFound      Reason = "date_not_found"
	ReasonAmountNotAccepted Reason = "amount_not_accepted"
	ReasonDateMismatch      Reason = "date_mismatch"
)

// Outcome is the verdict on one receipt. Amount is set only when Accepted.
type Outcome struct {
	Accepted bool   `json:"accepted"`
	Amount   *int   `json:"amount,omitempty"`
	Reason   Reason `json:"reason"`
}

func rejected(reason Reason) Outcome {
	return Outcome{Reason: reason}
}

// Validate applies the acceptance rules to what was read from a receipt.
// A nil amount or date means nothing was found; ref is the day the receipt
// must be dated. The first failing rule decides the reason.
func Validate(kind Kind, amount *int, date *Date, ref Date, accepted *AmountSet) Outcome {
	switch {
	case kind == KindUnsupportedImage:
		return rejected(ReasonUnsupportedType)
	case kind != KindDocument:
		return rejected(ReasonUnsupportedType)
	case amount == nil:
		return rejected(ReasonAmountNotFound)
	case date == nil:
		return rejected(ReasonDateNotFound)
	case !accepted.Allows(*amount):
		return rejected(ReasonAmountNotAccepted)
	case *date != ref:
		return rejected(ReasonDateMismatch)
	}
	value := *amount
	return Outcome{Accepted: true, Amount: &value, Reason: ReasonOK}
}
