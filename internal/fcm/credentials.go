// Package fcm implements the Firebase Cloud Messaging HTTP v1 client:
// service-account credentials, payload assembly and the publisher.
package fcm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
)

// MessagingScope is the OAuth2 scope required to call the FCM send API.
const MessagingScope = "https://www.googleapis.com/auth/firebase.messaging"

// serviceAccount mirrors the Firebase service-account JSON document.
type serviceAccount struct {
	ClientID     string `json:"client_id"`
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	PrivateKeyID string `json:"private_key_id"`
	ProjectID    string `json:"project_id"`
	TokenURI     string `json:"token_uri"`
}

// CredentialManager owns the service-account credential and exchanges it
// for short-lived bearer tokens scoped to FCM messaging. Tokens are
// cached until their provider-declared expiry; refresh is safe under
// concurrent use.
type CredentialManager struct {
	projectID string
	source    oauth2.TokenSource
}

// NewCredentialManager loads and parses the service-account file once.
// Relative paths resolve against confDir. A missing or unparseable file
// is an error: the caller decides whether that disables publishing or
// aborts startup.
func NewCredentialManager(ctx context.Context, path, confDir string) (*CredentialManager, error) {
	if path == "" {
		return nil, errors.New("service account file path is not configured")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(confDir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading service account file %s: %w", path, err)
	}

	var sa serviceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil, fmt.Errorf("parsing service account file %s: %w", path, err)
	}
	if sa.ClientID == "" || sa.ClientEmail == "" || sa.PrivateKey == "" || sa.PrivateKeyID == "" {
		return nil, fmt.Errorf("incomplete service account file %s, expecting 'client_id', 'client_email', 'private_key' and 'private_key_id'", path)
	}

	conf := &jwt.Config{
		Email:        sa.ClientEmail,
		PrivateKey:   []byte(sa.PrivateKey),
		PrivateKeyID: sa.PrivateKeyID,
		Scopes:       []string{MessagingScope},
		TokenURL:     sa.TokenURI,
	}
	if conf.TokenURL == "" {
		conf.TokenURL = google.JWTTokenURL
	}

	return &CredentialManager{
		projectID: sa.ProjectID,
		source:    oauth2.ReuseTokenSource(nil, conf.TokenSource(ctx)),
	}, nil
}

// ProjectID is the Firebase project the credential belongs to.
func (m *CredentialManager) ProjectID() string {
	return m.projectID
}

// AccessToken returns a currently valid bearer token, refreshing it from
// the token endpoint when the cached one has expired.
func (m *CredentialManager) AccessToken() (string, error) {
	tok, err := m.source.Token()
	if err != nil {
		return "", fmt.Errorf("refreshing access token: %w", err)
	}
	return tok.AccessToken, nil
}
