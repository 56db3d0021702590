package redis

const (
	// KeyPrefixService is the prefix for service documents
	KeyPrefixService = "jumpgate:service:"
	// KeyAllServices is the key for the set of all service keys
	KeyAllServices = "jumpgate:services:all"
	// KeyPrefixApplication is the prefix for application documents, by app key
	KeyPrefixApplication = "jumpgate:application:"
	// KeyPrefixSession is the prefix for session documents, by token
	KeyPrefixSession = "jumpgate:session:"
	// KeyPrefixAccount is the prefix for account documents, by id
	KeyPrefixAccount = "jumpgate:account:"
	// KeyPrefixGroup is the prefix for group documents, by id
	KeyPrefixGroup = "jumpgate:group:"
	// KeyPrefixGateway is the prefix for gateway documents, by public URL
	KeyPrefixGateway = "jumpgate:gateway:"
)

// ServiceKey returns the Redis key for a service by its slug
func ServiceKey(key string) string {
	return KeyPrefixService + key
}

// AllServicesKey returns the key for the set of all service slugs
func AllServicesKey() string {
	return KeyAllServices
}

// ApplicationKey returns the Redis key for an application by app key
func ApplicationKey(appKey string) string {
	return KeyPrefixApplication + appKey
}

// SessionKey returns the Redis key for a session by token
func SessionKey(token string) string {
	return KeyPrefixSession + token
}

// AccountKey returns the Redis key for an account by id
func AccountKey(id string) string {
	return KeyPrefixAccount + id
}

// GroupKey returns the Redis key for a group by id
func GroupKey(id string) string {
	return KeyPrefixGroup + id
}

// GatewayKey returns the Redis key for a gateway by public URL
func GatewayKey(url string) string {
	return KeyPrefixGateway + url
}
