package redisx

import "time"

const (
	// Unfiltered product listing per page: products:list:{page}
	KeyProductsPage = "products:list:%d"

	// Bearer token -> user_id: auth:token:{token}
	KeyAuthToken = "auth:token:%s"

	// Set of a user's live tokens, for logout-everywhere: auth:user:{user_id}:tokens
	KeyUserTokens = "auth:user:%s:tokens"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLProductsPage = 5 * time.Minute
	TTLAuthToken    = 24 * time.Hour
	TTLDedup        = 48 * time.Hour
)
