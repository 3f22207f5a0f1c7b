package twitter

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/dghubble/oauth1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulachik/socialgate/internal/httpx"
	"github.com/abdulachik/socialgate/internal/social"
)

// Reference values from the X developer documentation on creating a
// signature.
func TestHMACSignatureReferenceVector(t *testing.T) {
	base := "POST&https%3A%2F%2Fapi.twitter.com%2F1.1%2Fstatuses%2Fupdate.json&" +
		"include_entities%3Dtrue%26oauth_consumer_key%3Dxvz1evFS4wEEPTGEFPHBog%26" +
		"oauth_nonce%3DkYjzVBB8Y0ZFabxSWbWovY3uYSQ2pTgmZeNu2VS4cg%26oauth_signature_method%3DHMAC-SHA1%26" +
		"oauth_timestamp%3D1318622958%26oauth_token%3D370773112-GmHxMAgYyLbNEtIKZeRNFsMKPR9EyMZeS9weJAEb%26" +
		"oauth_version%3D1.0%26status%3DHello%2520Ladies%2520%252B%2520Gentlemen%252C%2520a%2520signed%2520OAuth%2520request%2521"

	signer := &oauth1.HMACSigner{ConsumerSecret: "kAcSOqF21Fu85e7zjz7ZN2U4ZRhfV3WpwPAoE3Z7kBw"}
	sig, err := signer.Sign("LswwdoUaIvS8ltyTt5jkRh4J50vUPVVHtR2YPi5kE", base)
	require.NoError(t, err)
	assert.Equal(t, "hCtSmYh+iHYCEqBWrE7C7hYmtUk=", sig)
	assert.Equal(t, "HMAC-SHA1", signer.Name())
}

func TestOAuth1SignsFormRequests(t *testing.T) {
	var got http.Header
	var form url.Values
	a, _ := newAdapter(t, map[string]http.HandlerFunc{
		"POST /1.1/media/metadata/create.json": func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Clone()
			require.NoError(t, r.ParseForm())
			form = r.PostForm
			w.WriteHeader(http.StatusOK)
		},
	}, func(c *Config) {
		c.ConsumerKey = "ck"
		c.ConsumerSecret = "cs"
	})

	cred := social.Credential{AccessToken: "at", TokenSecret: "ts"}
	err := a.call(context.Background(), cred, httpx.Request{
		Op:     "metadata",
		Method: http.MethodPost,
		URL:    "/1.1/media/metadata/create.json",
		Form:   url.Values{"status": {"a b"}},
	}, nil)
	require.NoError(t, err)

	header := got.Get("Authorization")
	assert.True(t, strings.HasPrefix(header, "OAuth "))
	assert.Contains(t, header, `oauth_consumer_key="ck"`)
	assert.Contains(t, header, `oauth_token="at"`)
	assert.Contains(t, header, `oauth_signature_method="HMAC-SHA1"`)
	assert.Contains(t, header, `oauth_signature=`)
	assert.Equal(t, "a b", form.Get("status"), "body survives signing")
}
