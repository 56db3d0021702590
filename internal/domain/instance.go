package domain

// Locality tells whether an instance (or the gateway) runs on the local
// deployment or on a remote one.
type Locality string

const (
	LocalityLocal  Locality = "local"
	LocalityRemote Locality = "remote"
)

// ParseLocality maps free text to a Locality, defaulting to remote.
func ParseLocality(s string) Locality {
	if Locality(s) == LocalityLocal {
		return LocalityLocal
	}
	return LocalityRemote
}

// Instance is a concrete deployment of a service reachable at URL.
type Instance struct {
	ID       string   `json:"id"`
	URL      string   `json:"url"`
	Running  bool     `json:"running"`
	Active   bool     `json:"active"`
	Locality Locality `json:"locality"`
}

// Eligible reports whether the instance may receive traffic.
func (i Instance) Eligible() bool {
	return i.Running && i.Active
}

// IsLocal reports whether the instance runs on the local deployment.
func (i Instance) IsLocal() bool {
	return i.Locality == LocalityLocal
}
