// Package oauth wraps the federated identity provider used for
// OAuth signup and login.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

const exchangeTimeout = 10 * time.Second

// Claims is the provider-verified identity extracted from an ID token.
type Claims struct {
	Email   string
	Name    string
	Picture string
}

// Provider abstracts the identity provider so handlers can be tested
// without network round trips.
type Provider interface {
	// AuthCodeURL builds the authorization URL the browser is sent to.
	AuthCodeURL(state string) string

	// Authenticate exchanges the callback code and verifies the ID
	// token, returning the provider-verified identity.
	Authenticate(ctx context.Context, code string) (Claims, error)
}

// GoogleProvider implements Provider against Google's OAuth endpoints.
type GoogleProvider struct {
	config   *oauth2.Config
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		validate: idtoken.Validate,
	}
}

func (g *GoogleProvider) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

func (g *GoogleProvider) Authenticate(ctx context.Context, code string) (Claims, error) {
	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return Claims{}, fmt.Errorf("code exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return Claims{}, errors.New("provider response missing id_token")
	}

	// Validate checks the signature against Google's keys and that the
	// token was minted for this client.
	payload, err := g.validate(ctx, rawIDToken, g.config.ClientID)
	if err != nil {
		return Claims{}, fmt.Errorf("id token verification failed: %w", err)
	}

	claims := Claims{
		Email:   stringClaim(payload.Claims, "email"),
		Name:    stringClaim(payload.Claims, "name"),
		Picture: stringClaim(payload.Claims, "picture"),
	}
	if claims.Email == "" {
		return Claims{}, errors.New("id token missing email claim")
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return Claims{}, errors.New("provider email not verified")
	}
	return claims, nil
}

func stringClaim(claims map[string]any, key string) string {
	value, _ := claims[key].(string)
	return value
}
