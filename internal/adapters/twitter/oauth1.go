package twitter

import (
	"context"
	"net/http"

	"github.com/dghubble/oauth1"

	"github.com/abdulachik/socialgate/internal/social"
)

// oauth1Client returns a client that signs each request with OAuth 1.0a
// HMAC-SHA1 for the user token in cred. Query and url-encoded form
// parameters take part in the signature; JSON and multipart bodies do not.
func (a *Adapter) oauth1Client(ctx context.Context, cred social.Credential) *http.Client {
	cfg := oauth1.NewConfig(a.consumerKey, a.consumerSecret)
	base := a.http.HTTPClient()

	client := cfg.Client(context.WithValue(ctx, oauth1.HTTPClient, base), oauth1.NewToken(cred.AccessToken, cred.TokenSecret))
	client.Timeout = base.Timeout
	return client
}
