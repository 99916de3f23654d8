package rediskey

import "fmt"

// Quota keys (global convention across services). Keys are namespaced per
// tenant and per quota type so tenants and quota paths never collide.
const (
	AppCountPrefix   = "quota:apps"
	ExecutionsPrefix = "quota:executions"
	LockPrefix       = "lock"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildAppCountKey returns "quota:apps:{tenantID}"
func BuildAppCountKey(tenantID string) string {
	return NamespaceKey(AppCountPrefix, tenantID)
}

// BuildExecutionsKey returns "quota:executions:{tenantID}"
func BuildExecutionsKey(tenantID string) string {
	return NamespaceKey(ExecutionsPrefix, tenantID)
}

// BuildLockKey returns "lock:{key}", e.g. "lock:quota:apps:{tenantID}"
func BuildLockKey(key string) string {
	return NamespaceKey(LockPrefix, key)
}
