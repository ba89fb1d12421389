package auth

import (
	"context"
	"time"

	"github.com/sahilchouksey/byteboost-api/utils/cache"
)

const revokedPrefix = "auth:revoked:"

// RevocationList tracks revoked access token ids until they would have expired anyway
type RevocationList struct {
	store cache.Store
}

// NewRevocationList creates a revocation list backed by store
func NewRevocationList(store cache.Store) *RevocationList {
	return &RevocationList{store: store}
}

// Revoke records jti as revoked for ttl
func (r *RevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.store.Set(ctx, revokedPrefix+jti, "1", ttl)
}

// IsRevoked checks whether jti has been revoked
func (r *RevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return r.store.Exists(ctx, revokedPrefix+jti)
}
