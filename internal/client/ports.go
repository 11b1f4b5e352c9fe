package client

import "context"

// Repo — read path for tenant configuration. Mutation is owned by
// onboarding, outside this service.
type Repo interface {
	Get(ctx context.Context, clientID string) (*Config, error)
}
