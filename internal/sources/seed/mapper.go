package seed

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/jumpgate/internal/domain"
	redisstore "github.com/MrSnakeDoc/jumpgate/internal/store/redis"
)

// idSpace namespaces the name-based ids derived for routes and instances.
var idSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://jumpgate/seed"))

// Mapper converts a seed file into store documents
type Mapper struct {
	now func() time.Time
}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{now: time.Now}
}

// Map validates f and converts it. Missing route and instance ids are
// derived from what identifies them in the file, so mapping the same file
// again yields the same ids. A session without created_at is stamped with
// the current time; the store never overwrites an existing session.
func (m *Mapper) Map(f *File) (redisstore.Seed, error) {
	var seed redisstore.Seed
	now := m.now().UTC()

	keys := make(map[string]bool, len(f.Services))
	for i, props := range f.Services {
		svc, err := m.mapService(props)
		if err != nil {
			return redisstore.Seed{}, fmt.Errorf("services[%d]: %w", i, err)
		}
		if keys[svc.Key] {
			return redisstore.Seed{}, fmt.Errorf("services[%d]: duplicate key %q", i, svc.Key)
		}
		keys[svc.Key] = true
		seed.Services = append(seed.Services, svc)
	}

	for i, props := range f.Applications {
		if props.Key == "" {
			return redisstore.Seed{}, fmt.Errorf("applications[%d]: key is required", i)
		}
		seed.Applications = append(seed.Applications, &domain.Application{
			Key:            props.Key,
			Name:           props.Name,
			OwnerAccountID: props.Owner,
		})
	}

	for i, props := range f.Accounts {
		if props.ID == "" {
			return redisstore.Seed{}, fmt.Errorf("accounts[%d]: id is required", i)
		}
		seed.Accounts = append(seed.Accounts, &domain.Account{
			ID:       props.ID,
			Username: props.Username,
			GroupIDs: append([]string(nil), props.Groups...),
		})
	}

	for i, props := range f.Groups {
		if props.ID == "" {
			return redisstore.Seed{}, fmt.Errorf("groups[%d]: id is required", i)
		}
		slug := props.Slug
		if slug == "" {
			slug = props.ID
		}
		seed.Groups = append(seed.Groups, &domain.Group{
			ID:       props.ID,
			Slug:     slug,
			RouteIDs: append([]string(nil), props.Routes...),
		})
	}

	for i, props := range f.Sessions {
		if props.Token == "" || props.Account == "" {
			return redisstore.Seed{}, fmt.Errorf("sessions[%d]: token and account are required", i)
		}
		created := now
		if props.CreatedAt != nil {
			created = props.CreatedAt.UTC()
		}
		seed.Sessions = append(seed.Sessions, &domain.Session{
			Token:             props.Token,
			AccountID:         props.Account,
			CreatedAt:         created,
			ExpirationSeconds: int64(props.ExpiresIn / time.Second),
		})
	}

	return seed, nil
}

func (m *Mapper) mapService(props ServiceProps) (*domain.Service, error) {
	if props.Key == "" {
		return nil, fmt.Errorf("key is required")
	}

	svc := &domain.Service{
		Key:        props.Key,
		PathPrefix: normalizePrefix(props.PathPrefix),
		Active:     boolOr(props.Active, true),
		TestMode:   props.TestMode,
		Routes:     make([]domain.Route, 0, len(props.Routes)),
		Instances:  make([]domain.Instance, 0, len(props.Instances)),
	}

	for i, r := range props.Routes {
		if r.Verb == "" || r.Path == "" {
			return nil, fmt.Errorf("%s routes[%d]: verb and path are required", props.Key, i)
		}
		verb := strings.ToUpper(r.Verb)
		id := r.ID
		if id == "" {
			id = derivedID("route", props.Key, verb, r.Path)
		}
		svc.Routes = append(svc.Routes, domain.Route{
			ID:            id,
			Verb:          verb,
			PathTemplate:  r.Path,
			Active:        boolOr(r.Active, true),
			Authenticated: r.Authenticated,
		})
	}

	for i, inst := range props.Instances {
		u, err := url.Parse(inst.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%s instances[%d]: invalid url %q", props.Key, i, inst.URL)
		}
		id := inst.ID
		if id == "" {
			id = derivedID("instance", props.Key, inst.URL)
		}
		svc.Instances = append(svc.Instances, domain.Instance{
			ID:       id,
			URL:      inst.URL,
			Running:  boolOr(inst.Running, true),
			Active:   boolOr(inst.Active, true),
			Locality: domain.ParseLocality(inst.Locality),
		})
	}

	return svc, nil
}

// derivedID returns a name-based UUID for parts.
func derivedID(parts ...string) string {
	return uuid.NewSHA1(idSpace, []byte(strings.Join(parts, "\x00"))).String()
}

// normalizePrefix ensures a single leading slash and no trailing one
// Example: "users/" -> "/users"
func normalizePrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
