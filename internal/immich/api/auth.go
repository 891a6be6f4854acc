package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse contains the relevant fields of a successful login.
//
// See: https://api.immich.app/models/LoginResponseDto
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	UserID      string `json:"userId"`
	UserEmail   string `json:"userEmail"`
	Name        string `json:"name"`
}

// Login exchanges credentials for a bearer token. A 200 or 201 with a
// non-empty accessToken is success; a 401 is ErrInvalidCredentials and any
// other status a *ServerError.
//
// See: https://api.immich.app/endpoints/authentication/login
func (c Client) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/auth/login", "", creds)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusUnauthorized:
		return nil, ErrInvalidCredentials
	default:
		return nil, &ServerError{Op: "login", Status: resp.StatusCode}
	}
	var lr LoginResponse
	if err := json.Unmarshal(resp.Body, &lr); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if lr.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing accessToken", ErrMalformedResponse)
	}
	return &lr, nil
}

// Logout invalidates the token server-side.
//
// See: https://api.immich.app/endpoints/authentication/logout
func (c Client) Logout(ctx context.Context, token string) error {
	resp, err := c.do(ctx, http.MethodPost, "/auth/logout", token, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &ServerError{Op: "logout", Status: resp.StatusCode}
	}
	return nil
}
