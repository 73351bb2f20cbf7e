// Package firebase is the identity provider: it verifies Firebase ID tokens, looks up accounts and
// mints email verification links through the Firebase Admin SDK.
package firebase

import (
	"context"
	"fmt"
	"os"

	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/go-bgg-gateway/internal/config"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

var scopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/identitytoolkit",
	"https://www.googleapis.com/auth/userinfo.email",
}

// App is the initialized provider handle shared by the identity components.
type App struct {
	projectID string
	auth      *auth.Client
}

// NewApp resolves credentials once at startup. Precedence: cfg.ServiceAccountPath, then the file named
// by GOOGLE_APPLICATION_CREDENTIALS, then ambient default credentials.
func NewApp(ctx context.Context, cfg config.Firebase) (*App, error) {
	creds, err := loadCredentials(ctx, credentialsFile(cfg.ServiceAccountPath, os.Getenv))
	if err != nil {
		return nil, err
	}

	projectID := cfg.ProjectID
	if projectID == "" {
		projectID = creds.ProjectID
	}
	if projectID == "" {
		return nil, fmt.Errorf("firebase project id is not set and could not be derived from credentials")
	}

	app, err := fb.NewApp(ctx, &fb.Config{ProjectID: projectID}, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase auth: %w", err)
	}
	return &App{projectID: projectID, auth: client}, nil
}

func (a *App) ProjectID() string { return a.projectID }

// credentialsFile returns the service account file to load, or "" for ambient credentials.
func credentialsFile(explicit string, getenv func(string) string) string {
	if explicit != "" {
		return explicit
	}
	return getenv("GOOGLE_APPLICATION_CREDENTIALS")
}

func loadCredentials(ctx context.Context, path string) (*google.Credentials, error) {
	if path == "" {
		creds, err := google.FindDefaultCredentials(ctx, scopes...)
		if err != nil {
			return nil, fmt.Errorf("find default credentials: %w", err)
		}
		return creds, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse service account file: %w", err)
	}
	return creds, nil
}
