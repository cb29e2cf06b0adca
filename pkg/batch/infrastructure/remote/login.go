package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	config "github.com/ulelab/flowAPIscripts/pkg/batch/core/config"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/exception"
	logger "github.com/ulelab/flowAPIscripts/pkg/batch/support/util/logger"
)

// CredentialPrompter asks the operator for a username and password.
type CredentialPrompter interface {
	PromptCredentials(defaultUsername string) (username, password string, err error)
}

// LoginTokenSource obtains a token by posting credentials to /login.
// Wrap it in oauth2.ReuseTokenSource so the operator is prompted once.
type LoginTokenSource struct {
	baseURL  string
	username string
	prompter CredentialPrompter
	client   *http.Client
}

// NewLoginTokenSource creates a LoginTokenSource.
func NewLoginTokenSource(api *config.APIConfig, prompter CredentialPrompter, client *http.Client) *LoginTokenSource {
	if client == nil {
		client = &http.Client{Timeout: time.Duration(api.RequestTimeoutSeconds) * time.Second}
	}
	return &LoginTokenSource{
		baseURL:  strings.TrimRight(api.BaseURL, "/"),
		username: api.Username,
		prompter: prompter,
		client:   client,
	}
}

type loginResponse struct {
	Token string `json:"token"`
}

// Token prompts for credentials and exchanges them for a bearer token.
func (s *LoginTokenSource) Token() (*oauth2.Token, error) {
	username, password, err := s.prompter.PromptCredentials(s.username)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, exception.KindConfiguration, "failed to read credentials", err)
	}
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, err
	}
	logger.Debugf("POST %s/login %s", s.baseURL, describeLogin(username, password))

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, s.baseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return nil, exception.NewBatchError(moduleName, exception.KindTransport, "failed to create login request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, exception.KindTransport, "login request failed", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, exception.KindTransport, "failed to read login response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, exception.NewBatchError(moduleName, exception.KindTransport, fmt.Sprintf("HTTP %d error: %s", resp.StatusCode, truncate(raw)), nil)
	}

	var out loginResponse
	if err := json.Unmarshal(raw, &out); err != nil || out.Token == "" {
		return nil, exception.NewBatchError(moduleName, exception.KindConfiguration, "invalid username or password (no token in response)", nil)
	}
	return &oauth2.Token{AccessToken: out.Token, TokenType: "Bearer"}, nil
}

// NewTokenSource returns a static source when a token is configured and a
// one-shot interactive login otherwise.
func NewTokenSource(api *config.APIConfig, prompter CredentialPrompter) oauth2.TokenSource {
	if api.Token != "" {
		logger.Debugf("Using configured API token.")
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: api.Token, TokenType: "Bearer"})
	}
	return oauth2.ReuseTokenSource(nil, NewLoginTokenSource(api, prompter, nil))
}
