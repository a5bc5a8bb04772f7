package box

import (
	"context"
	"net/url"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultTokenURL is the Box OAuth2 token endpoint.
const DefaultTokenURL = "https://api.box.com/oauth2/token"

// Credentials holds the settings for Box authentication. A DeveloperToken,
// when set, wins over the client-credentials grant.
type Credentials struct {
	ClientID       string
	ClientSecret   string
	EnterpriseID   string
	DeveloperToken string
	TokenURL       string
}

// NewTokenSource returns a token source for creds. Client-credentials tokens
// are fetched lazily and refreshed on expiry.
func NewTokenSource(ctx context.Context, creds Credentials) (oauth2.TokenSource, error) {
	if creds.DeveloperToken != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.DeveloperToken}), nil
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, eris.New("box: client id and client secret are required")
	}
	if creds.EnterpriseID == "" {
		return nil, eris.New("box: enterprise id is required for client credentials auth")
	}

	tokenURL := creds.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	cc := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
		EndpointParams: url.Values{
			"box_subject_type": {"enterprise"},
			"box_subject_id":   {creds.EnterpriseID},
		},
	}
	return cc.TokenSource(ctx), nil
}
