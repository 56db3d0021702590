package seed

import "time"

// File is the top-level structure of the seed YAML.
type File struct {
	Services     []ServiceProps     `yaml:"services"`
	Applications []ApplicationProps `yaml:"applications"`
	Accounts     []AccountProps     `yaml:"accounts"`
	Groups       []GroupProps       `yaml:"groups"`
	Sessions     []SessionProps     `yaml:"sessions"`
}

// ServiceProps describes one backend service. Flags default to true when
// omitted, except test_mode.
type ServiceProps struct {
	Key        string          `yaml:"key"`
	PathPrefix string          `yaml:"path_prefix"`
	Active     *bool           `yaml:"active,omitempty"`
	TestMode   bool            `yaml:"test_mode,omitempty"`
	Routes     []RouteProps    `yaml:"routes"`
	Instances  []InstanceProps `yaml:"instances"`
}

type RouteProps struct {
	ID            string `yaml:"id,omitempty"` // derived from the service key and path when empty
	Verb          string `yaml:"verb"`
	Path          string `yaml:"path"`
	Active        *bool  `yaml:"active,omitempty"`
	Authenticated bool   `yaml:"authenticated,omitempty"`
}

type InstanceProps struct {
	ID       string `yaml:"id,omitempty"` // derived from the service key and url when empty
	URL      string `yaml:"url"`
	Running  *bool  `yaml:"running,omitempty"`
	Active   *bool  `yaml:"active,omitempty"`
	Locality string `yaml:"locality,omitempty"` // "local" | "remote" (default)
}

type ApplicationProps struct {
	Key   string `yaml:"key"`
	Name  string `yaml:"name,omitempty"`
	Owner string `yaml:"owner"` // account id
}

type AccountProps struct {
	ID       string   `yaml:"id"`
	Username string   `yaml:"username,omitempty"`
	Groups   []string `yaml:"groups"` // group ids
}

// GroupProps lists the routes its members may invoke, by route id.
type GroupProps struct {
	ID     string   `yaml:"id"`
	Slug   string   `yaml:"slug,omitempty"`
	Routes []string `yaml:"routes"`
}

type SessionProps struct {
	Token     string        `yaml:"token"`
	Account   string        `yaml:"account"`
	CreatedAt *time.Time    `yaml:"created_at,omitempty"` // defaults to the time the session is first written
	ExpiresIn time.Duration `yaml:"expires_in"`
}
