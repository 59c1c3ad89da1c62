package auth

const (
	ScopeOpenID        = "openid"
	ScopeProfile       = "profile"
	ScopeContactsRead  = "contacts:read"
	ScopeContactsWrite = "contacts:write"
)

// AllScopes defines the full set of scopes requested by the API docs.
var AllScopes = []string{
	ScopeOpenID,
	ScopeProfile,
	ScopeContactsRead,
	ScopeContactsWrite,
}
