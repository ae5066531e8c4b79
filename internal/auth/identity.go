package auth

// Identity is a successful assertion from an external identity provider.
// It contains facts only, no decisions.
type Identity struct {
	Provider       string // e.g. "google", "keycloak"
	ProviderUserID string // provider-scoped subject
	Email          string
	EmailVerified  bool
	GivenName      string
	FamilyName     string
	AvatarURL      string
}
