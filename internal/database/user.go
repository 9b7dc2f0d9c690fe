package database

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/katro/partyhub/internal/models"
)

// UserStore reads identities from the users table. It implements
// identity.UserStore.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// GetUserByID fetches one user. Missing users are an error: the caller
// decides whether that means "reject" or "anonymous".
func (s *UserStore) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", userID, err)
	}

	q := `
		SELECT id::text, COALESCE(username, ''), COALESCE(avatar, ''),
		       COALESCE(is_admin, FALSE), COALESCE(discord_id, '')
		FROM users
		WHERE id = $1
	`
	var u models.User
	err = s.pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Username, &u.Avatar, &u.IsAdmin, &u.DiscordID)
	if err != nil {
		return nil, fmt.Errorf("fetch user %d: %w", id, err)
	}
	return &u, nil
}

// ListDiscordIDs maps user ids to their discord ids, skipping users without
// one.
func (s *UserStore) ListDiscordIDs(ctx context.Context, userIDs []string) ([]string, error) {
	ids := make([]int64, 0, len(userIDs))
	for _, raw := range userIDs {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	q := `
		SELECT discord_id
		FROM users
		WHERE id = ANY($1) AND discord_id IS NOT NULL
	`
	rows, err := s.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch discord ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var discordID string
		if err := rows.Scan(&discordID); err != nil {
			return nil, err
		}
		if discordID != "" {
			out = append(out, discordID)
		}
	}
	return out, rows.Err()
}
