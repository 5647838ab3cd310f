package messaging

import (
	"context"
	"net/http"
	"net/url"

	apperrors "anomaly-trainer/internal/errors"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// ClientCredentialsExchanger trades the messaging client credentials for a
// bearer token on every call. Tokens are not cached.
type ClientCredentialsExchanger struct {
	config     clientcredentials.Config
	httpClient *http.Client
}

func NewClientCredentialsExchanger(creds MessagingCredentials, httpClient *http.Client) *ClientCredentialsExchanger {
	return &ClientCredentialsExchanger{
		config: clientcredentials.Config{
			ClientID:       creds.ClientId,
			ClientSecret:   creds.ClientSecret,
			TokenURL:       creds.TokenEndpoint,
			EndpointParams: url.Values{"response_type": {"token"}},
			AuthStyle:      oauth2.AuthStyleInHeader,
		},
		httpClient: httpClient,
	}
}

func (e *ClientCredentialsExchanger) Token(ctx context.Context) (string, error) {
	if e.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
	}

	token, err := e.config.Token(ctx)
	if err != nil {
		return "", apperrors.Wrap(apperrors.AuthFailed, err, "client credentials exchange failed")
	}
	if token.AccessToken == "" {
		return "", apperrors.New(apperrors.AuthFailed, "token endpoint returned an empty access token")
	}
	return token.AccessToken, nil
}
