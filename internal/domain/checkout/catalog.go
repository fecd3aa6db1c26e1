package checkout

import "github.com/dukapos/dukapos-api/internal/domain/enum"

// MethodInfo describes the rules for a single payment method.
type MethodInfo struct {
	RequiresReference bool
}

// MethodCatalog resolves payment methods to their configuration. The second
// return value is false when the method is not offered at all.
type MethodCatalog interface {
	Get(method enum.PaymentMethod) (MethodInfo, bool)
}

// StaticCatalog is an in-memory MethodCatalog.
type StaticCatalog map[enum.PaymentMethod]MethodInfo

func (c StaticCatalog) Get(method enum.PaymentMethod) (MethodInfo, bool) {
	info, ok := c[method]
	return info, ok
}

// DefaultCatalog is the hardcoded fallback used when the tenant's
// payment-method catalog is unavailable or empty.
func DefaultCatalog() StaticCatalog {
	return StaticCatalog{
		enum.PaymentMethodCash:   {},
		enum.PaymentMethodCard:   {},
		enum.PaymentMethodCredit: {},
	}
}
