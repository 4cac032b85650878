package core

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

// Resolver turns provider user ids into profile ids. Concurrent resolves of
// one id share a single store call.
type Resolver struct {
	store   IdentityStore
	group   singleflight.Group
	metrics *Metrics
	logger  *slog.Logger
}

func NewResolver(store IdentityStore, opts ...Option) *Resolver {
	o := buildOptions(opts)
	return &Resolver{
		store:   store,
		metrics: o.metrics,
		logger:  o.logger,
	}
}

// Resolve returns the stable profile id for providerUserID, persisting a new
// one first when the id has never been seen.
func (r *Resolver) Resolve(ctx context.Context, providerUserID string) (int, error) {
	if strings.TrimSpace(providerUserID) == "" {
		return 0, ErrEmptyProviderID
	}

	ctx, span := otel.Tracer("skyauth/core").Start(ctx, "gatekeeper.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("skyauth.provider_user_id", providerUserID))

	v, err, _ := r.group.Do(providerUserID, func() (any, error) {
		profileID, created, err := r.store.GetOrCreate(ctx, providerUserID)
		if err != nil {
			return 0, err
		}
		if created {
			r.metrics.IncrementProfilesAssigned()
			r.logger.Info("assigned new profile id", "provider_user_id", providerUserID, "profile_id", profileID)
		}
		return profileID, nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	profileID := v.(int)
	span.SetAttributes(attribute.Int("skyauth.profile_id", profileID))
	return profileID, nil
}

// Lookup returns the profile id without allocating one.
func (r *Resolver) Lookup(ctx context.Context, providerUserID string) (int, error) {
	if strings.TrimSpace(providerUserID) == "" {
		return 0, ErrEmptyProviderID
	}
	return r.store.Lookup(ctx, providerUserID)
}
