package identity

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/katro/partyhub/internal/auth"
	"github.com/katro/partyhub/internal/cache"
	"github.com/katro/partyhub/internal/models"
)

// UserStore is the narrow read interface onto the external user store.
type UserStore interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	// ListDiscordIDs maps user ids onto the external voice-channel ids, for
	// the deafen/undeafen side channel. Unknown users are skipped.
	ListDiscordIDs(ctx context.Context, userIDs []string) ([]string, error)
}

// Resolver validates a bearer credential and resolves it to an identity.
// Failure never panics past the caller: callers branch on the error and treat
// it as "anonymous" on the game channel or a hard rejection on the lobby
// channel.
type Resolver struct {
	users UserStore
	cache *cache.Cache
	log   *logrus.Logger
}

func NewResolver(users UserStore, idCache *cache.Cache, log *logrus.Logger) *Resolver {
	return &Resolver{users: users, cache: idCache, log: log}
}

// Resolve verifies the token and looks up the user behind its subject claim.
func (r *Resolver) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, fmt.Errorf("no token")
	}
	sub, err := auth.AuthenticateJWT(token)
	if err != nil {
		return nil, err
	}

	if u, ok := r.cache.GetUser(ctx, sub); ok {
		return u, nil
	}

	u, err := r.users.GetUserByID(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	r.cache.PutUser(ctx, u)
	return u, nil
}
