package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelopeOK(data any) string {
	b, _ := json.Marshal(map[string]any{"isSuccess": true, "data": data})
	return string(b)
}

func envelopeFail(message string) string {
	b, _ := json.Marshal(map[string]any{"isSuccess": false, "errorMessage": message})
	return string(b)
}

func TestClient_EnvelopeUnwrap_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/indicators/ind_abc", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		fmt.Fprint(w, envelopeOK(map[string]any{"id": "ind_abc", "name": "cpu-load"}))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	c.SetTokens("tok-1", "refresh-1")

	ind, err := c.GetIndicator(context.Background(), "ind_abc")
	require.NoError(t, err)
	assert.Equal(t, "ind_abc", ind.ID)
	assert.Equal(t, "cpu-load", ind.Name)
}

func TestClient_EnvelopeUnwrap_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, envelopeFail("indicator not found"))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	c.SetTokens("tok-1", "refresh-1")

	_, err := c.GetIndicator(context.Background(), "ind_gone")
	require.Error(t, err)

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "indicator not found", notFound.Message)
}

func TestClient_TypedErrors(t *testing.T) {
	cases := []struct {
		status int
		check  func(t *testing.T, err error)
	}{
		{http.StatusUnauthorized, func(t *testing.T, err error) {
			var e *AuthenticationError
			assert.ErrorAs(t, err, &e)
		}},
		{http.StatusForbidden, func(t *testing.T, err error) {
			var e *AuthorizationError
			assert.ErrorAs(t, err, &e)
		}},
		{http.StatusConflict, func(t *testing.T, err error) {
			var e *ConflictError
			assert.ErrorAs(t, err, &e)
		}},
		{http.StatusInternalServerError, func(t *testing.T, err error) {
			var e *ServerError
			assert.ErrorAs(t, err, &e)
		}},
	}

	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, envelopeFail("nope"))
			}))
			defer server.Close()

			c := New(Config{BaseURL: server.URL})
			// ResolveAlert exercises the envelope path; for 401 the
			// client will attempt a refresh first, which also 401s.
			_, err := c.ResolveAlert(context.Background(), "alr_x", "ops")
			tc.check(t, err)
		})
	}
}

func TestClient_ValidationError_Fields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"isSuccess":false,"errorMessage":"validation failed","errors":[{"field":"email","message":"email is required"}]}`)
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	c.SetTokens("tok-1", "refresh-1")

	_, err := c.CreateContact(context.Background(), ContactRequest{})
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"email is required"}, ve.Fields["email"])
}

// refreshingServer accepts any request bearing the current token,
// 401s stale tokens and rotates the pair on /auth/refresh.
type refreshingServer struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string
	refreshCalls atomic.Int64
}

func (s *refreshingServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		s.refreshCalls.Add(1)

		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		s.mu.Lock()
		defer s.mu.Unlock()
		if body.RefreshToken != s.refreshToken {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"type":"about:blank","title":"Unauthorized","detail":"invalid refresh token"}`)
			return
		}
		s.accessToken += "+"
		s.refreshToken += "+"
		_ = json.NewEncoder(w).Encode(TokenResponse{
			AccessToken:  s.accessToken,
			RefreshToken: s.refreshToken,
			TokenType:    "Bearer",
			ExpiresIn:    3600,
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		current := s.accessToken
		s.mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer "+current {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, envelopeFail("token expired"))
			return
		}
		fmt.Fprint(w, envelopeOK([]any{}))
	})
	return mux
}

func TestClient_Refresh_SingleFlight(t *testing.T) {
	backend := &refreshingServer{accessToken: "fresh", refreshToken: "r0"}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	// The client holds a token the server no longer accepts.
	c.SetTokens("stale", "r0")

	const concurrency = 8
	var wg sync.WaitGroup
	errs := make([]error, concurrency)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.ListContacts(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "request %d", i)
	}
	assert.Equal(t, int64(1), backend.refreshCalls.Load(), "expected exactly one refresh call")

	access, refresh := c.Tokens()
	assert.Equal(t, "fresh+", access)
	assert.Equal(t, "r0+", refresh)
}

func TestClient_RefreshFailure_ClearsTokensAndNotifies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		if r.URL.Path == "/api/v1/auth/refresh" {
			fmt.Fprint(w, `{"type":"about:blank","title":"Unauthorized","detail":"refresh token revoked"}`)
			return
		}
		fmt.Fprint(w, envelopeFail("token expired"))
	}))
	defer server.Close()

	expired := false
	c := New(Config{
		BaseURL:       server.URL,
		OnAuthExpired: func() { expired = true },
	})
	c.SetTokens("stale", "revoked")

	_, err := c.ListContacts(context.Background())
	require.Error(t, err)

	var authErr *AuthenticationError
	assert.ErrorAs(t, err, &authErr)
	assert.True(t, expired, "expected OnAuthExpired callback")

	access, refresh := c.Tokens()
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}

func TestClient_Login_StoresTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/auth/login", r.URL.Path)

		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ops@example.com", body.Email)

		_ = json.NewEncoder(w).Encode(TokenResponse{
			AccessToken:  "a1",
			RefreshToken: "r1",
			TokenType:    "Bearer",
			ExpiresIn:    3600,
		})
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	tokens, err := c.Login(context.Background(), "ops@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, "a1", tokens.AccessToken)

	access, refresh := c.Tokens()
	assert.Equal(t, "a1", access)
	assert.Equal(t, "r1", refresh)
}

func TestClient_Login_InvalidCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"type":"about:blank","title":"Unauthorized","detail":"invalid email or password"}`)
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	_, err := c.Login(context.Background(), "ops@example.com", "wrong")
	require.Error(t, err)

	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "invalid email or password", authErr.Message)
}

func TestClient_ListIndicators_Pagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("pageSize"))
		fmt.Fprint(w, envelopeOK(map[string]any{
			"items": []map[string]any{{"id": "ind_1"}},
			"meta": map[string]any{
				"page": 2, "pageSize": 10, "totalPages": 3, "totalCount": 25,
				"hasNextPage": true, "hasPreviousPage": true,
			},
		}))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	c.SetTokens("tok", "r")

	page, err := c.ListIndicators(context.Background(), ListIndicatorsOptions{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.True(t, page.Meta.HasNextPage)
	assert.True(t, page.Meta.HasPreviousPage)
	assert.Equal(t, 25, page.Meta.TotalCount)
}

func TestClient_ContextCancellation(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	c := New(Config{BaseURL: server.URL})
	c.SetTokens("tok", "r")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListContacts(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
