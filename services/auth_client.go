// services/auth_client.go
package services

import (
	"context"
	"fmt"
	"power-token-exchange/apperrors"
	"power-token-exchange/logger"
	"time"

	"github.com/go-resty/resty/v2"
)

// AuthUser is the identity returned by the hosted auth service.
type AuthUser struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
}

// AuthSession is the token pair returned by sign-up and sign-in.
type AuthSession struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int      `json:"expires_in"`
	User         AuthUser `json:"user"`
}

type authErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e authErrorBody) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return "request rejected"
}

// AuthClient is what the remote backend needs from the hosted auth service.
type AuthClient interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*AuthSession, error)
	SignIn(ctx context.Context, email, password string) (*AuthSession, error)
	User(ctx context.Context, accessToken string) (*AuthUser, error)
	SignOut(ctx context.Context, accessToken string) error
}

// GoTrueClient calls a GoTrue-compatible auth REST API.
type GoTrueClient struct {
	client *resty.Client
}

func NewGoTrueClient(baseURL, anonKey string) *GoTrueClient {
	client := resty.New()
	client.SetTimeout(10 * time.Second)
	client.SetBaseURL(baseURL)
	client.SetHeader("apikey", anonKey)
	client.SetHeader("Content-Type", "application/json")

	return &GoTrueClient{client: client}
}

func (c *GoTrueClient) SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*AuthSession, error) {
	var out AuthSession
	var failure authErrorBody
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"email":    email,
			"password": password,
			"data":     metadata,
		}).
		SetResult(&out).
		SetError(&failure).
		Post("/auth/v1/signup")
	if err := checkAuthResponse("signup", resp, err, failure); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *GoTrueClient) SignIn(ctx context.Context, email, password string) (*AuthSession, error) {
	var out AuthSession
	var failure authErrorBody
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{
			"email":    email,
			"password": password,
		}).
		SetResult(&out).
		SetError(&failure).
		Post("/auth/v1/token")
	if err := checkAuthResponse("token", resp, err, failure); err != nil {
		return nil, err
	}
	return &out, nil
}

// User resolves an access token to its user.
func (c *GoTrueClient) User(ctx context.Context, accessToken string) (*AuthUser, error) {
	var out AuthUser
	var failure authErrorBody
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&out).
		SetError(&failure).
		Get("/auth/v1/user")
	if err := checkAuthResponse("user", resp, err, failure); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *GoTrueClient) SignOut(ctx context.Context, accessToken string) error {
	var failure authErrorBody
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetError(&failure).
		Post("/auth/v1/logout")
	return checkAuthResponse("logout", resp, err, failure)
}

func checkAuthResponse(endpoint string, resp *resty.Response, err error, failure authErrorBody) error {
	if err != nil {
		return apperrors.New(apperrors.ErrRemoteUnavailable, "auth service unreachable", err)
	}
	if resp.IsError() {
		logger.Warnf("AuthService /%s returned %d: %s", endpoint, resp.StatusCode(), failure.text())
		return apperrors.New(apperrors.ErrRemoteRejected, failure.text(),
			fmt.Errorf("auth %s failed: %d", endpoint, resp.StatusCode()))
	}
	return nil
}
