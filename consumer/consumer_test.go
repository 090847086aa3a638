package consumer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	jose "gopkg.in/square/go-jose.v2"

	"github.com/eliasp/oidcrp/consumer"
	"github.com/eliasp/oidcrp/message"
	"github.com/eliasp/oidcrp/store"
)

func testConfig() *consumer.Config {
	return &consumer.Config{
		ClientID:              "client",
		ClientSecret:          "the-secret",
		AuthzPage:             "authz_cb",
		Scope:                 []string{"openid"},
		ResponseType:          "code",
		AuthorizationEndpoint: "https://op.example.com/authorize",
		TokenEndpoint:         "https://op.example.com/token",
		UserInfoEndpoint:      "https://op.example.com/userinfo",
	}
}

func TestConsumer_Begin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("persists-session-and-seed-index", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		sessions := store.NewInMem()
		c, err := consumer.NewConsumer(testConfig(), sessions)
		require.NoError(err)

		location, err := c.Begin(ctx, "https://rp.example.com/page?color=blue")
		require.NoError(err)

		u, err := url.Parse(location)
		require.NoError(err)
		q := u.Query()
		sid := c.Session().State
		require.NotEmpty(sid)
		assert.Equal("https://op.example.com/authorize", u.Scheme+"://"+u.Host+u.Path)
		assert.Equal(sid, q.Get("state"))
		assert.Equal("code", q.Get("response_type"))
		assert.Equal("openid", q.Get("scope"))
		assert.Equal("client", q.Get("client_id"))
		assert.Equal("https://rp.example.com/page/authz_cb", q.Get("redirect_uri"))
		assert.Len(q.Get("nonce"), consumer.DefaultNonceLength)

		stored, err := sessions.GetSession(ctx, sid)
		require.NoError(err)
		assert.Equal(sid, stored.State)
		require.Contains(stored.Grants, sid)
		assert.Equal(stored.Seed, stored.Grants[sid].Seed)

		indexed, err := sessions.GetSeed(ctx, c.Session().Seed)
		require.NoError(err)
		assert.Equal(sid, indexed)

		assert.Equal("https://rp.example.com/page?color=blue", c.Session().Request)
	})

	t.Run("callback-slash-normalization", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			name       string
			contextURL string
			page       string
			want       string
		}{
			{name: "no-slashes", contextURL: "https://rp.example.com/app", page: "authz_cb", want: "https://rp.example.com/app/authz_cb"},
			{name: "trailing-slash", contextURL: "https://rp.example.com/app/", page: "authz_cb", want: "https://rp.example.com/app/authz_cb"},
			{name: "leading-slash", contextURL: "https://rp.example.com/app", page: "/authz_cb", want: "https://rp.example.com/app/authz_cb"},
			{name: "both-slashes", contextURL: "https://rp.example.com/app/", page: "/authz_cb", want: "https://rp.example.com/app/authz_cb"},
		}
		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				assert, require := assert.New(t), require.New(t)
				config := testConfig()
				config.AuthzPage = tt.page
				c, err := consumer.NewConsumer(config, store.NewInMem())
				require.NoError(err)

				location, err := c.Begin(context.Background(), tt.contextURL)
				require.NoError(err)
				u, err := url.Parse(location)
				require.NoError(err)
				assert.Equal(tt.want, u.Query().Get("redirect_uri"))
				assert.Equal([]string{tt.want}, c.Session().RedirectURIs)
			})
		}
	})

	t.Run("dedupes-scopes", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		c, err := consumer.NewConsumer(testConfig(), store.NewInMem())
		require.NoError(err)

		location, err := c.Begin(ctx, "https://rp.example.com/app",
			consumer.WithScopes("openid", "profile", "openid"))
		require.NoError(err)
		u, err := url.Parse(location)
		require.NoError(err)
		assert.Equal("openid profile", u.Query().Get("scope"))
	})

	t.Run("seed-reused-sid-fresh", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		sessions := store.NewInMem()
		c, err := consumer.NewConsumer(testConfig(), sessions)
		require.NoError(err)

		_, err = c.Begin(ctx, "https://rp.example.com/app")
		require.NoError(err)
		firstSid := c.Session().State
		seed := c.Session().Seed

		_, err = c.Begin(ctx, "https://rp.example.com/app")
		require.NoError(err)
		secondSid := c.Session().State

		assert.Equal(seed, c.Session().Seed)
		assert.NotEqual(firstSid, secondSid)

		// the index always points at the most recently begun flow
		indexed, err := sessions.GetSeed(ctx, seed)
		require.NoError(err)
		assert.Equal(secondSid, indexed)
	})

	t.Run("claims-parameters", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		config := testConfig()
		config.MaxAge = 86400
		config.UserInfoClaims = &message.UserInfoClaims{
			Format: "signed",
			Locale: "us-en",
			Claims: map[string]*message.ClaimRequest{
				"name":     nil,
				"nickname": {Optional: true},
			},
		}
		c, err := consumer.NewConsumer(config, store.NewInMem())
		require.NoError(err)

		location, err := c.Begin(ctx, "https://rp.example.com/app")
		require.NoError(err)
		u, err := url.Parse(location)
		require.NoError(err)
		q := u.Query()

		var idtClaims message.IDTokenClaims
		require.NoError(json.Unmarshal([]byte(q.Get("idtoken_claims")), &idtClaims))
		assert.Equal(int64(86400), idtClaims.MaxAge)

		var uiClaims message.UserInfoClaims
		require.NoError(json.Unmarshal([]byte(q.Get("userinfo_claims")), &uiClaims))
		assert.Equal("signed", uiClaims.Format)
		require.Contains(uiClaims.Claims, "nickname")
		assert.True(uiClaims.Claims["nickname"].Optional)
	})

	t.Run("by-reference-request-delivery", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		config := testConfig()
		config.RequestMethod = consumer.RequestMethodFile
		config.TempDir = t.TempDir()
		config.TempPath = "request"
		sessions := store.NewInMem()
		c, err := consumer.NewConsumer(config, sessions)
		require.NoError(err)

		location, err := c.Begin(ctx, "https://rp.example.com/app")
		require.NoError(err)
		u, err := url.Parse(location)
		require.NoError(err)
		q := u.Query()

		requestURI := q.Get("request_uri")
		require.NotEmpty(requestURI)
		assert.Empty(q.Get("nonce"))
		assert.Equal(requestURI, c.Session().RequestURI)
		require.NotEmpty(c.Session().RequestFilename)

		// the persisted blob is the signed request object, nonce included
		blob, err := os.ReadFile(c.Session().RequestFilename)
		require.NoError(err)
		obj, err := jose.ParseSigned(string(blob))
		require.NoError(err)
		payload, err := obj.Verify([]byte("the-secret"))
		require.NoError(err)
		var claims map[string]interface{}
		require.NoError(json.Unmarshal(payload, &claims))
		assert.Equal(c.Session().Nonce, claims["nonce"])
		assert.Equal(c.Session().State, claims["state"])

		stored, err := sessions.GetSession(ctx, c.Session().State)
		require.NoError(err)
		assert.Equal(requestURI, stored.RequestURI)
	})
}

func TestConsumer_ParseAuthz(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("rejects-non-get", func(t *testing.T) {
		t.Parallel()
		c, err := consumer.NewConsumer(testConfig(), store.NewInMem())
		require.NoError(t, err)
		_, _, err = c.ParseAuthz(ctx, http.MethodPost, "code=abc&state=s")
		assert.ErrorIs(t, err, consumer.ErrUnsupportedMethod)
	})

	t.Run("error-response-mutates-nothing", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		sessions := store.NewInMem()
		c, err := consumer.NewConsumer(testConfig(), sessions)
		require.NoError(err)

		_, _, err = c.ParseAuthz(ctx, http.MethodGet, "error=access_denied&state=some-state")
		require.Error(err)
		assert.ErrorIs(err, consumer.ErrAuthorizationFailed)
		assert.Contains(err.Error(), "access_denied")

		_, getErr := sessions.GetSession(ctx, "some-state")
		assert.ErrorIs(getErr, consumer.ErrNotFound)
	})

	t.Run("unknown-state", func(t *testing.T) {
		t.Parallel()
		c, err := consumer.NewConsumer(testConfig(), store.NewInMem())
		require.NoError(t, err)
		_, _, err = c.ParseAuthz(ctx, http.MethodGet, "code=abc&state=never-begun")
		assert.ErrorIs(t, err, consumer.ErrUnknownState)
	})

	t.Run("merges-stored-session", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		sessions := store.NewInMem()
		stored := &consumer.Session{
			Seed:         "stored-seed",
			State:        "sid-1",
			ClientSecret: "S",
			RedirectURIs: []string{"https://rp.example.com/authz_cb"},
			Grants: map[string]*consumer.Grant{
				"sid-1": {Seed: "stored-seed"},
			},
		}
		require.NoError(sessions.PutSession(ctx, "sid-1", stored))

		config := testConfig()
		config.ClientSecret = "" // nothing in memory, must come from the store
		c, err := consumer.NewConsumer(config, sessions)
		require.NoError(err)

		aresp, atr, err := c.ParseAuthz(ctx, http.MethodGet, "code=abc&state=sid-1")
		require.NoError(err)
		require.NotNil(aresp)
		assert.Nil(atr)
		assert.Equal("abc", aresp.Code)

		assert.Equal("S", c.Session().ClientSecret)
		assert.Equal([]string{"https://rp.example.com/authz_cb"}, c.Session().RedirectURIs)
		require.Contains(c.Session().Grants, "sid-1")
		assert.Equal("abc", c.Session().Grants["sid-1"].Code)

		// the code survived the re-persist too
		after, err := sessions.GetSession(ctx, "sid-1")
		require.NoError(err)
		assert.Equal("abc", after.Grants["sid-1"].Code)
	})

	t.Run("grant-less-stored-session", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		sessions := store.NewInMem()
		require.NoError(sessions.PutSession(ctx, "sid-bare", &consumer.Session{
			State:        "sid-bare",
			RedirectURIs: []string{"https://rp.example.com/authz_cb"},
		}))
		c, err := consumer.NewConsumer(testConfig(), sessions)
		require.NoError(err)

		aresp, _, err := c.ParseAuthz(ctx, http.MethodGet, "code=abc&state=sid-bare")
		require.NoError(err)
		assert.Equal("abc", aresp.Code)
		require.Contains(c.Session().Grants, "sid-bare")
		assert.Equal("abc", c.Session().Grants["sid-bare"].Code)
	})

	t.Run("keeps-persisted-seed", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		sessions := store.NewInMem()
		require.NoError(sessions.PutSession(ctx, "sid-3", &consumer.Session{
			Seed:         "persisted-seed",
			State:        "sid-3",
			RedirectURIs: []string{"https://rp.example.com/authz_cb"},
			Grants:       map[string]*consumer.Grant{"sid-3": {Seed: "persisted-seed"}},
		}))
		require.NoError(sessions.PutSeed(ctx, "persisted-seed", "sid-3"))

		// a fresh consumer arrives at the callback carrying its own seed;
		// the persisted one is what the seed index references and must win
		c, err := consumer.NewConsumer(testConfig(), sessions)
		require.NoError(err)
		_, _, err = c.ParseAuthz(ctx, http.MethodGet, "code=abc&state=sid-3")
		require.NoError(err)
		assert.Equal("persisted-seed", c.Session().Seed)

		stored, err := sessions.GetSession(ctx, "sid-3")
		require.NoError(err)
		assert.Equal("persisted-seed", stored.Seed)
		sid, err := sessions.GetSeed(ctx, "persisted-seed")
		require.NoError(err)
		assert.Equal("sid-3", sid)
	})

	t.Run("hybrid-token-is-canonicalized", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		sessions := store.NewInMem()
		require.NoError(sessions.PutSession(ctx, "sid-2", &consumer.Session{
			State:        "sid-2",
			RedirectURIs: []string{"https://rp.example.com/authz_cb"},
			Grants:       map[string]*consumer.Grant{"sid-2": {}},
		}))
		c, err := consumer.NewConsumer(testConfig(), sessions)
		require.NoError(err)

		query := "code=abc&state=sid-2&access_token=at-123&token_type=Bearer&expires_in=600&unrecognized=x"
		_, atr, err := c.ParseAuthz(ctx, http.MethodGet, query)
		require.NoError(err)
		require.NotNil(atr)
		assert.Equal("at-123", atr.AccessToken)
		assert.Equal("Bearer", atr.TokenType)
		assert.Equal(int64(600), atr.ExpiresIn)

		grant := c.Session().Grants["sid-2"]
		require.Len(grant.Tokens, 1)
		assert.Equal("at-123", grant.Token().AccessToken)
		assert.Equal(atr, c.Session().AccessToken)
	})

	t.Run("implicit-flow", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		config := testConfig()
		config.ResponseType = "token"
		c, err := consumer.NewConsumer(config, store.NewInMem())
		require.NoError(err)

		aresp, atr, err := c.ParseAuthz(ctx, http.MethodGet, "access_token=at-456&token_type=Bearer&state=whatever")
		require.NoError(err)
		assert.Nil(aresp)
		require.NotNil(atr)
		assert.Equal("at-456", atr.AccessToken)
	})

	t.Run("implicit-flow-error", func(t *testing.T) {
		t.Parallel()
		config := testConfig()
		config.ResponseType = "token"
		c, err := consumer.NewConsumer(config, store.NewInMem())
		require.NoError(t, err)

		_, _, err = c.ParseAuthz(ctx, http.MethodGet, "error=invalid_request")
		require.Error(t, err)
		assert.ErrorIs(t, err, consumer.ErrTokenFailed)
	})
}

func TestConsumer_Complete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	prime := func(t *testing.T, c *consumer.Consumer) {
		t.Helper()
		s := c.Session()
		s.State = "sid-1"
		s.RedirectURIs = []string{"https://rp.example.com/authz_cb"}
		s.Grants = map[string]*consumer.Grant{"sid-1": {Seed: s.Seed, Code: "abc"}}
	}

	t.Run("body-auth", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(r.ParseForm())
			assert.Equal("authorization_code", r.PostForm.Get("grant_type"))
			assert.Equal("abc", r.PostForm.Get("code"))
			assert.Equal("https://rp.example.com/authz_cb", r.PostForm.Get("redirect_uri"))
			assert.Equal("sid-1", r.PostForm.Get("state"))
			assert.Equal("client", r.PostForm.Get("client_id"))
			assert.Equal("the-secret", r.PostForm.Get("client_secret"))
			assert.Equal("Bearer", r.PostForm.Get("secret_type"))
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "tok",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		}))
		defer ts.Close()

		config := testConfig()
		config.TokenEndpoint = ts.URL
		sessions := store.NewInMem()
		c, err := consumer.NewConsumer(config, sessions)
		require.NoError(err)
		prime(t, c)

		resp, err := c.Complete(ctx)
		require.NoError(err)
		assert.Equal("tok", resp.AccessToken)
		assert.Equal("Bearer", resp.TokenType)
		assert.Equal(int64(3600), resp.ExpiresIn)

		assert.Equal("tok", c.Session().Grants["sid-1"].Token().AccessToken)
		stored, err := sessions.GetSession(ctx, "sid-1")
		require.NoError(err)
		assert.Equal("tok", stored.Grants["sid-1"].Token().AccessToken)
	})

	t.Run("basic-auth-with-password", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			assert.True(ok)
			assert.Equal("client", user)
			assert.Equal("hemligt", pass)
			require.NoError(r.ParseForm())
			assert.Empty(r.PostForm.Get("client_secret"))
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "tok",
				"token_type":   "Bearer",
			})
		}))
		defer ts.Close()

		config := testConfig()
		config.TokenEndpoint = ts.URL
		config.Password = "hemligt"
		c, err := consumer.NewConsumer(config, store.NewInMem())
		require.NoError(err)
		prime(t, c)

		resp, err := c.Complete(ctx)
		require.NoError(err)
		assert.Equal("tok", resp.AccessToken)
	})

	t.Run("token-endpoint-error", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
		}))
		defer ts.Close()

		config := testConfig()
		config.TokenEndpoint = ts.URL
		c, err := consumer.NewConsumer(config, store.NewInMem())
		require.NoError(err)
		prime(t, c)

		_, err = c.Complete(ctx)
		require.Error(err)
		assert.ErrorIs(err, consumer.ErrTokenFailed)
		assert.Contains(err.Error(), "invalid_grant")
	})

	t.Run("missing-credentials", func(t *testing.T) {
		t.Parallel()
		config := testConfig()
		config.ClientSecret = ""
		c, err := consumer.NewConsumer(config, store.NewInMem())
		require.NoError(t, err)
		prime(t, c)
		c.Session().ClientSecret = ""

		_, err = c.Complete(ctx)
		assert.ErrorIs(t, err, consumer.ErrMissingCredentials)
	})

	t.Run("no-flow-in-progress", func(t *testing.T) {
		t.Parallel()
		c, err := consumer.NewConsumer(testConfig(), store.NewInMem())
		require.NoError(t, err)
		_, err = c.Complete(ctx)
		assert.ErrorIs(t, err, consumer.ErrInvalidParameter)
	})
}

func TestConsumer_UserInfo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("requires-token", func(t *testing.T) {
		t.Parallel()
		c, err := consumer.NewConsumer(testConfig(), store.NewInMem())
		require.NoError(t, err)
		_, err = c.UserInfo(ctx)
		assert.ErrorIs(t, err, consumer.ErrMissingToken)
	})

	t.Run("fetches-and-caches", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal("Bearer tok", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"sub":            "alice",
				"name":           "Alice Example",
				"email":          "alice@example.com",
				"verified":       true,
				"favorite_color": "blue",
			})
		}))
		defer ts.Close()

		config := testConfig()
		config.UserInfoEndpoint = ts.URL
		sessions := store.NewInMem()
		c, err := consumer.NewConsumer(config, sessions)
		require.NoError(err)
		s := c.Session()
		s.State = "sid-1"
		s.Grants = map[string]*consumer.Grant{
			"sid-1": {Tokens: []*message.AccessTokenResponse{{AccessToken: "tok"}}},
		}

		uinfo, err := c.UserInfo(ctx)
		require.NoError(err)
		assert.Equal("alice", uinfo.Subject)
		assert.Equal("Alice Example", uinfo.Name)
		assert.True(uinfo.Verified)
		assert.Equal("blue", uinfo.Claims["favorite_color"])

		assert.Equal(uinfo, c.Session().UserInfo)
		stored, err := sessions.GetSession(ctx, "sid-1")
		require.NoError(err)
		require.NotNil(stored.UserInfo)
		assert.Equal("alice", stored.UserInfo.Subject)
	})

	t.Run("userinfo-error", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid_token"})
		}))
		defer ts.Close()

		config := testConfig()
		config.UserInfoEndpoint = ts.URL
		c, err := consumer.NewConsumer(config, store.NewInMem())
		require.NoError(err)
		s := c.Session()
		s.State = "sid-1"
		s.Grants = map[string]*consumer.Grant{
			"sid-1": {Tokens: []*message.AccessTokenResponse{{AccessToken: "tok"}}},
		}

		_, err = c.UserInfo(ctx)
		require.Error(err)
		assert.ErrorIs(err, consumer.ErrTokenFailed)
		assert.Contains(err.Error(), "invalid_token")
	})
}

func TestConsumer_Restore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("from-seed", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		sessions := store.NewInMem()
		first, err := consumer.NewConsumer(testConfig(), sessions)
		require.NoError(err)
		_, err = first.Begin(ctx, "https://rp.example.com/app")
		require.NoError(err)
		sid := first.Session().State
		seed := first.Session().Seed

		// a later web request builds a fresh consumer and picks the flow
		// back up via the seed carried in the browser cookie
		second, err := consumer.NewConsumer(testConfig(), sessions)
		require.NoError(err)
		require.NoError(second.RestoreFromSeed(ctx, seed))
		assert.Equal(sid, second.Session().State)
		assert.Equal(seed, second.Session().Seed)
		require.Contains(second.Session().Grants, sid)
	})

	t.Run("unknown-sid", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		c, err := consumer.NewConsumer(testConfig(), store.NewInMem())
		require.NoError(err)
		assert.ErrorIs(c.Restore(ctx, "missing"), consumer.ErrUnknownState)
		assert.ErrorIs(c.RestoreFromSeed(ctx, "missing"), consumer.ErrUnknownState)
	})
}

func TestConsumer_EndToEnd(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()

	var exchangedState string
	tokenEndpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(r.ParseForm())
		assert.Equal("abc", r.PostForm.Get("code"))
		exchangedState = r.PostForm.Get("state")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "tok",
			"token_type":   "Bearer",
		})
	}))
	defer tokenEndpoint.Close()

	config := testConfig()
	config.TokenEndpoint = tokenEndpoint.URL
	sessions := store.NewInMem()
	c, err := consumer.NewConsumer(config, sessions)
	require.NoError(err)

	location, err := c.Begin(ctx, "https://rp.example.com/app",
		consumer.WithScopes("openid"), consumer.WithResponseType("code"))
	require.NoError(err)
	u, err := url.Parse(location)
	require.NoError(err)
	q := u.Query()
	sid := c.Session().State
	assert.Equal("code", q.Get("response_type"))
	assert.Equal("openid", q.Get("scope"))
	assert.Equal(sid, q.Get("state"))
	assert.Len(q.Get("nonce"), 12)

	aresp, atr, err := c.ParseAuthz(ctx, http.MethodGet, "code=abc&state="+sid)
	require.NoError(err)
	require.NotNil(aresp)
	assert.Nil(atr)
	assert.Equal("abc", aresp.Code)

	resp, err := c.Complete(ctx)
	require.NoError(err)
	assert.Equal("tok", resp.AccessToken)
	assert.Equal("Bearer", resp.TokenType)
	assert.Equal(sid, exchangedState)
	assert.Equal("tok", c.Session().Grants[sid].Token().AccessToken)

	stored, err := sessions.GetSession(ctx, sid)
	require.NoError(err)
	assert.Equal("tok", stored.Grants[sid].Token().AccessToken)
}
