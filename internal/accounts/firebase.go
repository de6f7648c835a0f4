package accounts

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseProvider implements Provider over Firebase Authentication.
type FirebaseProvider struct {
	client *auth.Client
}

// NewFirebaseProvider connects to the Firebase project's auth service.
func NewFirebaseProvider(ctx context.Context, projectID, credentialsFile string) (*FirebaseProvider, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	return &FirebaseProvider{client: client}, nil
}

// GetByEmail returns the account registered under email, or ErrNotFound.
func (p *FirebaseProvider) GetByEmail(ctx context.Context, email string) (Account, error) {
	user, err := p.client.GetUserByEmail(ctx, email)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("get account by email: %w", err)
	}
	return Account{ID: user.UID, Email: user.Email}, nil
}

// Create registers a new account, mapping the provider's email conflict to
// ErrEmailExists.
func (p *FirebaseProvider) Create(ctx context.Context, email, password, displayName string) (Account, error) {
	params := (&auth.UserToCreate{}).Email(email).Password(password)
	if displayName != "" {
		params = params.DisplayName(displayName)
	}
	user, err := p.client.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return Account{}, ErrEmailExists
		}
		return Account{}, fmt.Errorf("create account: %w", err)
	}
	return Account{ID: user.UID, Email: user.Email}, nil
}
