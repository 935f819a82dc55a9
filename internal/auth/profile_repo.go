package auth

import (
	"context"
	"fmt"

	"github.com/2beens/trainor/internal/schema"
	"github.com/2beens/trainor/internal/supabase"
)

var _ profileRepo = (*RestProfileRepo)(nil)

// RestProfileRepo reads and patches profile rows as the signed in user, so
// row level security keeps it to the caller's own row.
type RestProfileRepo struct {
	client *supabase.Client
}

func NewRestProfileRepo(client *supabase.Client) *RestProfileRepo {
	return &RestProfileRepo{
		client: client,
	}
}

func (r *RestProfileRepo) Get(ctx context.Context, userID string) (*schema.Profile, error) {
	var profile schema.Profile
	if err := r.client.From(schema.TableProfiles).
		Select("*").
		Eq("id", userID).
		Single().
		Execute(ctx, &profile); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &profile, nil
}

func (r *RestProfileRepo) Update(ctx context.Context, userID string, update schema.ProfileUpdate) (*schema.Profile, error) {
	var profile schema.Profile
	if err := r.client.From(schema.TableProfiles).
		Update(update).
		Eq("id", userID).
		Single().
		Execute(ctx, &profile); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &profile, nil
}
