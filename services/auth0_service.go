package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/powder-coating-api/config"
	"github.com/kendall-kelly/powder-coating-api/models"
)

// Auth0UserInfo represents the user information returned from Auth0's /userinfo endpoint
type Auth0UserInfo struct {
	Sub   string `json:"sub"` // Auth0 user ID
	Email string `json:"email"`
	Name  string `json:"name"`
}

// AccountProvisioner creates login accounts for new team members
type AccountProvisioner interface {
	// ProvisionAccount creates an identity and returns its Auth0 user ID
	ProvisionAccount(ctx context.Context, email, name string) (string, error)
}

// ErrProvisioningDisabled is returned when no management token is configured
var ErrProvisioningDisabled = errors.New("auth0 account provisioning is not configured")

// Auth0Service handles interactions with Auth0 API
type Auth0Service struct {
	domain     string
	mgmtToken  string
	connection string
	httpClient *http.Client
}

// NewAuth0Service creates a new Auth0 service instance
func NewAuth0Service(cfg *config.Config) *Auth0Service {
	return &Auth0Service{
		domain:     cfg.Auth0Domain,
		mgmtToken:  cfg.Auth0MgmtToken,
		connection: cfg.Auth0Connection,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// baseURL keeps an explicit scheme so tests can point at an httptest server
func (s *Auth0Service) baseURL() string {
	if strings.HasPrefix(s.domain, "http://") || strings.HasPrefix(s.domain, "https://") {
		return strings.TrimSuffix(s.domain, "/")
	}
	return "https://" + s.domain
}

// GetUserInfo fetches user information from Auth0's /userinfo endpoint
// accessToken is the JWT access token from the Authorization header
func (s *Auth0Service) GetUserInfo(accessToken string) (*Auth0UserInfo, error) {
	req, err := http.NewRequest(http.MethodGet, s.baseURL()+"/userinfo", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call userinfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("userinfo endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var userInfo Auth0UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo response: %w", err)
	}

	return &userInfo, nil
}

type createAccountRequest struct {
	Email       string         `json:"email"`
	Name        string         `json:"name"`
	Connection  string         `json:"connection"`
	Password    string         `json:"password"`
	VerifyEmail bool           `json:"verify_email"`
	AppMetadata map[string]any `json:"app_metadata"`
}

// ProvisionAccount creates a user through the Management API. The password is
// random; the member sets their own through the verification email.
func (s *Auth0Service) ProvisionAccount(ctx context.Context, email, name string) (string, error) {
	if s.mgmtToken == "" {
		return "", ErrProvisioningDisabled
	}

	body, err := json.Marshal(createAccountRequest{
		Email:       email,
		Name:        name,
		Connection:  s.connection,
		Password:    uuid.NewString() + "Aa1!",
		VerifyEmail: true,
		AppMetadata: map[string]any{"role": models.RoleTeam},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL()+"/api/v2/users", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.mgmtToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call users endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("users endpoint returned status %d: %s", resp.StatusCode, string(msg))
	}

	var created struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode users response: %w", err)
	}
	if created.UserID == "" {
		return "", errors.New("users endpoint returned no user_id")
	}
	return created.UserID, nil
}
