package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kendall-kelly/powder-coating-api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUserInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/userinfo" || r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(Auth0UserInfo{Sub: "auth0|1", Email: "carl@example.com", Name: "Carl"})
	}))
	defer server.Close()

	svc := NewAuth0Service(&config.Config{Auth0Domain: server.URL})

	info, err := svc.GetUserInfo("good-token")
	require.NoError(t, err)
	assert.Equal(t, "auth0|1", info.Sub)
	assert.Equal(t, "carl@example.com", info.Email)

	_, err = svc.GetUserInfo("bad-token")
	assert.Error(t, err)
}

func TestProvisionAccount(t *testing.T) {
	var got createAccountRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v2/users" || r.Header.Get("Authorization") != "Bearer mgmt" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"user_id": "auth0|new"})
	}))
	defer server.Close()

	svc := NewAuth0Service(&config.Config{Auth0Domain: server.URL, Auth0MgmtToken: "mgmt", Auth0Connection: "Username-Password-Authentication"})
	id, err := svc.ProvisionAccount(context.Background(), "cora@shop.test", "Cora")
	require.NoError(t, err)
	assert.Equal(t, "auth0|new", id)
	assert.Equal(t, "cora@shop.test", got.Email)
	assert.Equal(t, "Username-Password-Authentication", got.Connection)
	assert.Equal(t, "team", got.AppMetadata["role"])
	assert.True(t, got.VerifyEmail)
	assert.NotEmpty(t, got.Password)

	denied := NewAuth0Service(&config.Config{Auth0Domain: server.URL, Auth0MgmtToken: "wrong"})
	_, err = denied.ProvisionAccount(context.Background(), "x@shop.test", "X")
	assert.Error(t, err)
}

func TestProvisionAccountDisabled(t *testing.T) {
	svc := NewAuth0Service(&config.Config{Auth0Domain: "tenant.auth0.com"})
	_, err := svc.ProvisionAccount(context.Background(), "x@shop.test", "X")
	assert.ErrorIs(t, err, ErrProvisioningDisabled)
}
