package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DefaultCredentialsFile is the OAuth client-secrets file expected in the
// working directory, downloadable from the Cloud console.
const DefaultCredentialsFile = "credentials.json"

// DefaultTokenPath returns the per-user token cache location.
func DefaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ocrmill-token.json"
	}
	return filepath.Join(home, ".ocrmill", "token.json")
}

// NewService authenticates against Google Drive and returns a Drive service.
// A cached token is reused and refreshed transparently; without one, the
// installed-app flow prints an authorization URL and reads the code from
// stdin. A missing credentials file is a configuration error that should
// terminate the process before any work begins.
func NewService(ctx context.Context, credentialsPath, tokenPath string) (*driveapi.Service, error) {
	if credentialsPath == "" {
		credentialsPath = DefaultCredentialsFile
	}
	if tokenPath == "" {
		tokenPath = DefaultTokenPath()
	}

	secrets, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("drive: read %s (download from the Cloud console credentials page): %w", credentialsPath, err)
	}
	oauthCfg, err := google.ConfigFromJSON(secrets, driveapi.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("drive: parse client secrets: %w", err)
	}

	tok, err := tokenFromFile(tokenPath)
	if err != nil {
		tok, err = tokenFromWeb(ctx, oauthCfg)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenPath, tok); err != nil {
			return nil, err
		}
	}

	svc, err := driveapi.NewService(ctx, option.WithTokenSource(oauthCfg.TokenSource(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("drive: create service: %w", err)
	}
	return svc, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("drive: decode cached token: %w", err)
	}
	return tok, nil
}

func tokenFromWeb(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Open the following link in your browser, then paste the authorization code:\n%s\n> ", authURL)

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return nil, fmt.Errorf("drive: read authorization code: %w", err)
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("drive: exchange authorization code: %w", err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("drive: create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("drive: cache token at %s: %w", path, err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}
