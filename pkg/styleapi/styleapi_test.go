package styleapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{URL: server.URL, Token: "secret"})
	require.NoError(t, err)
	client.httpClient = server.Client()
	return client
}

func TestClientSearchCloset(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth string
	var gotPayload map[string]any

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		fmt.Fprint(w, `{"result":"3 jackets found"}`)
	})

	out, err := client.SearchCloset(context.Background(), "u-1", "denim jacket")
	require.NoError(t, err)
	assert.Equal(t, "3 jackets found", out)
	assert.Equal(t, "/closet/search", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "u-1", gotPayload["user_id"])
	assert.Equal(t, "denim jacket", gotPayload["query"])
}

func TestClientBareTextResponse(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "plain text answer")
	})

	out, err := client.WalletBalance(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "plain text answer", out)
}

func TestClientErrorField(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"wallet service unavailable"}`)
	})

	_, err := client.WalletBalance(context.Background(), "u-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet service unavailable")
}

func TestClientHTTPErrorStatus(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := client.GenerateImage(context.Background(), "an outfit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=502")
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{URL: "   ", Token: "x"})
	require.Error(t, err)

	_, err = NewClient(Config{URL: "::not-a-url::", Token: "x"})
	require.Error(t, err)
}
