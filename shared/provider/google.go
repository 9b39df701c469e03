package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var (
	ErrInvalidGoogleAudience = errors.New("invalid google audience")
	ErrInvalidGoogleToken    = errors.New("invalid google token")
)

// ExternalIdentity is the identity asserted by the OAuth provider after a
// successful token exchange.
type ExternalIdentity struct {
	ID        string
	Email     string
	FullName  string
	AvatarURL string
}

// GoogleOAuthProvider validates Google ID tokens and resolves them into
// external identities.
type GoogleOAuthProvider struct {
	clientID string
}

// NewGoogleOAuthProvider creates a provider bound to the given OAuth client id.
func NewGoogleOAuthProvider(clientID string) *GoogleOAuthProvider {
	return &GoogleOAuthProvider{clientID: clientID}
}

// Authenticate validates the ID token against Google and returns the
// external identity it carries. Any provider rejection is propagated; the
// caller must not treat the request as authenticated in that case.
func (p *GoogleOAuthProvider) Authenticate(ctx context.Context, idToken string) (*ExternalIdentity, error) {
	tokenInfo, err := p.validateIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}

	userInfo, err := p.getUserInfo(ctx, idToken)
	if err != nil {
		return nil, err
	}

	return &ExternalIdentity{
		ID:        tokenInfo.UserId,
		Email:     tokenInfo.Email,
		FullName:  userInfo.Name,
		AvatarURL: userInfo.Picture,
	}, nil
}

func (p *GoogleOAuthProvider) validateIDToken(ctx context.Context, idToken string) (*oauth2.Tokeninfo, error) {
	oauth2Service, err := oauth2.NewService(ctx, option.WithHTTPClient(&http.Client{}))
	if err != nil {
		return nil, err
	}

	tokenInfoCall := oauth2Service.Tokeninfo()
	tokenInfoCall.IdToken(idToken)
	tokenInfo, err := tokenInfoCall.Do()
	if err != nil {
		return nil, ErrInvalidGoogleToken
	}

	if tokenInfo.Audience != p.clientID {
		return nil, ErrInvalidGoogleAudience
	}

	return tokenInfo, nil
}

func (p *GoogleOAuthProvider) getUserInfo(ctx context.Context, idToken string) (*oauth2.Userinfo, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, "https://www.googleapis.com/oauth2/v1/userinfo", nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+idToken)

	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrInvalidGoogleToken
	}

	var userInfo oauth2.Userinfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, err
	}

	return &userInfo, nil
}
