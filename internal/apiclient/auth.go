package apiclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/noah-isme/academy-admin/internal/models"
)

// Login exchanges credentials for a token pair and profile. It never triggers a refresh.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	var out models.LoginResponse
	if err := c.Do(ctx, nil, http.MethodPost, "/auth/login", JSON(req), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken exchanges a refresh token for a new access token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	var out models.RefreshTokenResponse
	if err := c.Do(ctx, nil, http.MethodPost, "/auth/refresh-token", JSON(models.RefreshTokenRequest{RefreshToken: refreshToken}), &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", errors.New("refresh response carried no access token")
	}
	return out.AccessToken, nil
}

// Logout ends the session locally. The API keeps no server-side session to revoke.
func (c *Client) Logout(ctx context.Context, creds Credentials) error {
	if creds == nil {
		return nil
	}
	return creds.Invalidate(ctx)
}
