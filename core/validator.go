package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrMissingToken  = errors.New("missing access token")
	ErrTokenRejected = errors.New("access token rejected")
)

// TokenValidator verifies a bearer token with the identity provider. Only
// the provider's answer is trusted.
type TokenValidator struct {
	provider IdentityProvider
	timeout  time.Duration
	metrics  *Metrics
	logger   *slog.Logger
}

func NewTokenValidator(provider IdentityProvider, timeout time.Duration, opts ...Option) *TokenValidator {
	o := buildOptions(opts)
	if timeout <= 0 {
		timeout = DefaultValidateTimeout
	}
	return &TokenValidator{
		provider: provider,
		timeout:  timeout,
		metrics:  o.metrics,
		logger:   o.logger,
	}
}

// Validate returns the provider identity for token. An empty token fails
// with ErrMissingToken without calling the provider; every provider failure
// is ErrTokenRejected.
func (v *TokenValidator) Validate(ctx context.Context, token string) (*UserInfo, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	ctx, span := otel.Tracer("skyauth/core").Start(ctx, "tokenvalidator.Validate")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	info, err := v.provider.GetUserInfo(ctx, token)
	v.metrics.ObserveProvider("users_me", start)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %w", ErrTokenRejected, err)
	}
	if info == nil || info.ProviderUserID == "" {
		span.SetStatus(codes.Error, "empty provider user id")
		return nil, fmt.Errorf("%w: provider returned no user id", ErrTokenRejected)
	}

	span.SetAttributes(attribute.String("skyauth.provider_user_id", info.ProviderUserID))
	return info, nil
}
