//go:build unit

package robots_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/infrastructure/repositories/robots"
)

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		body          string
		wantOrigin    bool
		allowedPath   string
		forbiddenPath string
	}{
		{
			name:        "should allow everything without rules",
			body:        "",
			wantOrigin:  true,
			allowedPath: "/products",
		},
		{
			name:       "should block the origin on Disallow slash",
			body:       "User-agent: *\nDisallow: /\n",
			wantOrigin: false,
		},
		{
			name:       "should block the origin on an empty Disallow",
			body:       "User-agent: *\nDisallow:\n",
			wantOrigin: false,
		},
		{
			name:          "should honour path rules of the wildcard group",
			body:          "User-agent: *\nDisallow: /admin\n",
			wantOrigin:    true,
			allowedPath:   "/products",
			forbiddenPath: "/admin/users",
		},
		{
			name:        "should ignore groups of other agents",
			body:        "User-agent: badbot\nDisallow: /\n\nUser-agent: *\nDisallow: /private\n",
			wantOrigin:  true,
			allowedPath: "/",
		},
		{
			name:       "should apply rules shared by consecutive agent lines",
			body:       "User-agent: googlebot\nUser-agent: *\nDisallow: / # everything\n",
			wantOrigin: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			// when
			policy, err := robots.ParsePolicy(http.StatusOK, []byte(tc.body))

			// then
			require.NoError(t, err)
			assert.Equal(t, tc.wantOrigin, policy.AllowsOrigin())
			if tc.allowedPath != "" {
				assert.True(t, policy.Allows(tc.allowedPath))
			}
			if tc.forbiddenPath != "" {
				assert.False(t, policy.Allows(tc.forbiddenPath))
			}
		})
	}

	t.Run("should allow everything on a missing robots.txt", func(t *testing.T) {
		t.Parallel()
		// when
		policy, err := robots.ParsePolicy(http.StatusNotFound, []byte("User-agent: *\nDisallow: /\n"))

		// then
		require.NoError(t, err)
		assert.True(t, policy.AllowsOrigin())
	})
}

func TestRobotsRepositoryFetch(t *testing.T) {
	t.Parallel()

	t.Run("should fetch robots.txt from the origin with the configured agent", func(t *testing.T) {
		t.Parallel()
		// given
		var gotAgent, gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAgent = r.UserAgent()
			gotPath = r.URL.Path
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /cart\n"))
		}))
		defer server.Close()
		repo := robots.NewRobotsRepository(entities.DefaultSettings())

		// when
		policy := repo.Fetch(context.Background(), server.URL)

		// then
		assert.Equal(t, "/robots.txt", gotPath)
		assert.Equal(t, "seoremedy/1.0", gotAgent)
		assert.True(t, policy.AllowsOrigin())
		assert.False(t, policy.Allows("/cart"))
	})

	t.Run("should allow everything when the origin is unreachable", func(t *testing.T) {
		t.Parallel()
		// given
		server := httptest.NewServer(http.NotFoundHandler())
		origin := server.URL
		server.Close()
		repo := robots.NewRobotsRepository(entities.DefaultSettings())

		// when
		policy := repo.Fetch(context.Background(), origin)

		// then
		assert.Equal(t, entities.AllowAllPolicy{}, policy)
	})
}
