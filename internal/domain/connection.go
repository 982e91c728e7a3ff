package domain

// ConnectionStatus is the authorization state between a caller and one
// external application (toolkit).
type ConnectionStatus string

const (
	ConnectionUnauthorized ConnectionStatus = "unauthorized"
	ConnectionPending      ConnectionStatus = "pending"
	ConnectionAuthorized   ConnectionStatus = "authorized"
)

// Connection is the per-toolkit connection state returned by the connection
// manager. RedirectURL is the opaque next-step URL supplied by the upstream
// authorization flow when a connection is pending.
type Connection struct {
	Toolkit     string           `json:"toolkit"`
	Status      ConnectionStatus `json:"status"`
	RedirectURL string           `json:"redirect_url,omitempty"`
}
