package transport_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surjbayarea/actionsync/internal/transport"
)

func TestBasicAuth(t *testing.T) {
	tests := []struct {
		name     string
		auth     transport.BasicAuth
		wantUser string
		wantPass string
	}{
		{
			name:     "default mode is MyCampaign",
			auth:     transport.BasicAuth{AppName: "TSURJ.99.9999", APIKey: "secret"},
			wantUser: "TSURJ.99.9999",
			wantPass: "secret|1",
		},
		{
			name:     "explicit VoterFile mode",
			auth:     transport.BasicAuth{AppName: "app", APIKey: "key", Mode: "0"},
			wantUser: "app",
			wantPass: "key|0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest("GET", "https://api.securevan.com/v4/people", nil)
			require.NoError(t, err)

			tt.auth.Apply(req)

			user, pass, ok := req.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, tt.wantUser, user)
			assert.Equal(t, tt.wantPass, pass)
		})
	}
}

func TestNoAuth(t *testing.T) {
	req, err := http.NewRequest("GET", "https://example.com", nil)
	require.NoError(t, err)

	(&transport.NoAuth{}).Apply(req)

	_, _, ok := req.BasicAuth()
	assert.False(t, ok)
	assert.Empty(t, req.Header.Get("Authorization"))
}
