package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mmeshcher/tableside/internal/apiclient"
)

// ErrNoToken возвращается, если бэкенд принял вход, но не вернул токен.
var ErrNoToken = errors.New("login response carries no token")

// Credentials описывает данные входа. Персонал входит по PIN, администратор по паролю.
type Credentials struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	PIN      string `json:"pin,omitempty"`
	Role     string `json:"role"`
}

type loginResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"accessToken"`
	Role        string `json:"role"`
}

// Login выполняет вход и возвращает сессию с токеном роли.
func (a *API) Login(ctx context.Context, creds Credentials) (*apiclient.Session, error) {
	raw, err := a.c.Do(ctx, nil, apiclient.Request{
		Method:      http.MethodPost,
		Path:        "/admin/login",
		Body:        creds,
		Idempotency: true,
	})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	resp, err := apiclient.DecodeObject[loginResponse](raw)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if resp == nil {
		return nil, ErrNoToken
	}
	token := resp.Token
	if token == "" {
		token = resp.AccessToken
	}
	if token == "" {
		return nil, ErrNoToken
	}

	role := creds.Role
	if resp.Role != "" {
		role = resp.Role
	}
	return apiclient.NewSession(role, token), nil
}
