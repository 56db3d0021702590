package domain

import "time"

// Gateway is the self-description of the running gateway. Its token is the
// trust credential injected into every forwarded request.
//
// It is the only record the gateway writes, once, when absent.
type Gateway struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	Running   bool      `json:"running"`
	Active    bool      `json:"active"`
	Locality  Locality  `json:"locality"`
	CreatedAt time.Time `json:"created_at"`
}
