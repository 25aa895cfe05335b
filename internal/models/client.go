package models

type ClientType string

const (
	ClientParticulier ClientType = "particulier"
	ClientPro         ClientType = "pro"
)

// Client identity is captured by value on each subscription.
type Client struct {
	Name  string     `json:"name"`
	Phone string     `json:"phone"`
	Email string     `json:"email,omitempty"`
	Type  ClientType `json:"client_type"`
}
