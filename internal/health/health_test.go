package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulachik/socialgate/internal/social"
)

func TestHealth_SetHealthy(t *testing.T) {
	h := New()

	h.SetHealthy("test", "all good")

	status := h.GetStatus("test")
	require.NotNil(t, status)
	assert.True(t, status.Healthy)
	assert.Equal(t, "all good", status.Message)
	assert.Nil(t, status.LastError)
	assert.WithinDuration(t, time.Now(), status.LastCheck, time.Second)
	assert.WithinDuration(t, time.Now(), status.LastSuccess, time.Second)
}

func TestHealth_SetUnhealthy(t *testing.T) {
	h := New()

	h.SetHealthy("test", "ok")
	success := h.GetStatus("test").LastSuccess

	err := assert.AnError
	h.SetUnhealthy("test", err)

	status := h.GetStatus("test")
	assert.False(t, status.Healthy)
	assert.Equal(t, err, status.LastError)
	assert.Equal(t, err.Error(), status.Message)
	assert.Equal(t, success, status.LastSuccess)
}

func TestHealth_GetStatus_NotFound(t *testing.T) {
	assert.Nil(t, New().GetStatus("nonexistent"))
}

func TestHealth_GetStatus_ReturnsCopy(t *testing.T) {
	h := New()
	h.SetHealthy("store", "ok")

	status := h.GetStatus("store")
	status.Healthy = false

	assert.True(t, h.GetStatus("store").Healthy)
}

func TestHealth_GetAllStatuses(t *testing.T) {
	h := New()

	h.SetHealthy("comp1", "ok")
	h.SetHealthy("comp2", "ok")
	h.SetUnhealthy("comp3", assert.AnError)

	statuses := h.GetAllStatuses()
	assert.Len(t, statuses, 3)
	assert.True(t, statuses["comp1"].Healthy)
	assert.True(t, statuses["comp2"].Healthy)
	assert.False(t, statuses["comp3"].Healthy)
	assert.Equal(t, []string{"comp1", "comp2", "comp3"}, h.Components())
}

func TestHealth_IsOverallHealthy(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.True(t, New().IsOverallHealthy())
	})

	t.Run("all healthy", func(t *testing.T) {
		h := New()
		h.SetHealthy("comp1", "ok")
		h.SetHealthy("comp2", "ok")
		assert.True(t, h.IsOverallHealthy())
	})

	t.Run("one unhealthy", func(t *testing.T) {
		h := New()
		h.SetHealthy("comp1", "ok")
		h.SetUnhealthy("comp2", assert.AnError)
		assert.False(t, h.IsOverallHealthy())
	})
}

type fakeValidator struct {
	info *social.AccountInfo
	err  error
}

func (f fakeValidator) ValidateCredential(ctx context.Context, cred social.Credential) (*social.AccountInfo, error) {
	return f.info, f.err
}

func TestHealth_Run(t *testing.T) {
	h := New()
	tw := social.Credential{Platform: social.Twitter, AccessToken: "tok"}
	yt := social.Credential{Platform: social.YouTube, AccessToken: "tok"}

	h.Run(context.Background(), []Check{
		CredentialCheck(fakeValidator{info: &social.AccountInfo{ID: "42", Username: "gopher"}}, tw),
		CredentialCheck(fakeValidator{err: errors.New("token revoked")}, yt),
		{Name: "store", Run: func(ctx context.Context) (string, error) { return "sqlite", nil }},
	})

	assert.Equal(t, "authenticated as @gopher (42)", h.GetStatus("twitter").Message)
	assert.False(t, h.GetStatus("youtube").Healthy)
	assert.Equal(t, "token revoked", h.GetStatus("youtube").Message)
	assert.True(t, h.GetStatus("store").Healthy)
	assert.False(t, h.IsOverallHealthy())
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		info social.AccountInfo
		want string
	}{
		{"username", social.AccountInfo{ID: "1", Name: "Go", Username: "golang"}, "authenticated as @golang (1)"},
		{"name only", social.AccountInfo{ID: "2", Name: "Gopher Page"}, "authenticated as Gopher Page (2)"},
		{"id only", social.AccountInfo{ID: "urn:li:person:3"}, "authenticated as urn:li:person:3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describe(&tt.info))
		})
	}
}
