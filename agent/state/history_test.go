package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	contractx "github.com/styletto/stylist-agent/agent/contract"
)

func TestUpstashHistoryStoreRedisKey(t *testing.T) {
	t.Parallel()

	store := &UpstashHistoryStore{keyPrefix: defaultHistoryKeyPrefix}
	got, err := store.redisKey("u-42")
	if err != nil {
		t.Fatalf("redisKey() error = %v", err)
	}
	if got != "stylist:history:u-42" {
		t.Fatalf("redisKey() = %q", got)
	}

	if _, err := store.redisKey("   "); !errors.Is(err, ErrInvalidConversID) {
		t.Fatalf("redisKey() error = %v, want ErrInvalidConversID", err)
	}
}

func TestUpstashHistoryStoreSaveCommand(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashHistoryStore(
		UpstashHistoryConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
		WithTTL(0),
	)
	if err != nil {
		t.Fatalf("NewUpstashHistoryStore() error = %v", err)
	}

	entries := []contractx.HistoryEntry{
		{Role: "user", Content: "show me coats"},
		{Role: "assistant", Content: "here are two"},
	}
	if err := store.Save(context.Background(), "u-1", entries); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if len(gotCommand) != 3 {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
	if gotCommand[0] != "SET" || gotCommand[1] != "stylist:history:u-1" {
		t.Fatalf("unexpected command head: %#v", gotCommand[:2])
	}
}

func TestUpstashHistoryStoreLoadRoundTrip(t *testing.T) {
	t.Parallel()

	payload, _ := json.Marshal([]contractx.HistoryEntry{{Role: "user", Content: "hi"}})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		encoded, _ := json.Marshal(string(payload))
		fmt.Fprintf(w, `{"result":%s}`, encoded)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashHistoryStore(
		UpstashHistoryConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashHistoryStore() error = %v", err)
	}

	entries, err := store.Load(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Content != "hi" {
		t.Fatalf("unexpected entries: %#v", entries)
	}
}

func TestUpstashHistoryStoreLoadMissing(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":null}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashHistoryStore(
		UpstashHistoryConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashHistoryStore() error = %v", err)
	}

	if _, err := store.Load(context.Background(), "u-absent"); !errors.Is(err, ErrHistoryNotFound) {
		t.Fatalf("Load() error = %v, want ErrHistoryNotFound", err)
	}
}
