package enum

// PaymentMethod identifies how a sale payment was tendered.
// Stored as text; the tenant's payment-method catalog controls which
// methods are offered and which require a reference.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodMobileMoney  PaymentMethod = "mobile_money"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodGiftCard     PaymentMethod = "gift_card"
	PaymentMethodCredit       PaymentMethod = "credit"
)

func (m PaymentMethod) String() string {
	return string(m)
}

// IsValid reports whether the method is one of the known payment methods.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodMobileMoney,
		PaymentMethodBankTransfer, PaymentMethodCheck,
		PaymentMethodGiftCard, PaymentMethodCredit:
		return true
	}
	return false
}
