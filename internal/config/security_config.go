package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAdmin                       // Admin bearer token required
)

// EndpointSecurityConfig maps named HTTP routes to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Pricing - Public
	"pricing.quote":    SecurityPublic,
	"coupons.validate": SecurityPublic,

	// Bookings - Public
	"bookings.create":       SecurityPublic,
	"bookings.get":          SecurityPublic,
	"bookings.getByNumber":  SecurityPublic,
	"bookings.paymentPlan":  SecurityPublic,
	"bookings.startPayment": SecurityPublic,

	// Gateway callbacks authenticate by signature, not by token
	"payments.redsysNotification": SecurityPublic,
	"payments.stripeWebhook":      SecurityPublic,

	"healthz": SecurityPublic,

	// Admin
	"admin.bookings.list":    SecurityAdmin,
	"admin.bookings.update":  SecurityAdmin,
	"admin.bookings.status":  SecurityAdmin,
	"admin.bookings.refund":  SecurityAdmin,
	"admin.payments.confirm": SecurityAdmin,
}

// GetSecurityLevel returns the security level for a given route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAdmin
}
