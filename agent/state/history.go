package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/styletto/stylist-agent/agent/contract"
)

var (
	ErrHistoryNotFound  = errors.New("conversation history not found")
	ErrInvalidConversID = errors.New("conversation id is empty")
)

const (
	defaultHistoryKeyPrefix = "stylist:history:"
	defaultHistoryTTL       = 24 * time.Hour
	maxResponseSizeBytes    = 2 << 20
)

type HistoryStoreOption func(*UpstashHistoryStore)

func WithKeyPrefix(prefix string) HistoryStoreOption {
	return func(s *UpstashHistoryStore) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) HistoryStoreOption {
	return func(s *UpstashHistoryStore) {
		s.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) HistoryStoreOption {
	return func(s *UpstashHistoryStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashHistoryStore persists plain turn history in Upstash Redis via REST.
// Used by caller wiring only; the engine itself holds no durability.
type UpstashHistoryStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
}

var _ contractx.HistoryStore = (*UpstashHistoryStore)(nil)

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type UpstashHistoryConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

func NewUpstashHistoryStore(cfg UpstashHistoryConfig, opts ...HistoryStoreOption) (*UpstashHistoryStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	store := &UpstashHistoryStore{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		keyPrefix: defaultHistoryKeyPrefix,
		ttl:       defaultHistoryTTL,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}

	return store, nil
}

func (s *UpstashHistoryStore) Load(ctx context.Context, conversationID string) ([]contractx.HistoryEntry, error) {
	key, err := s.redisKey(conversationID)
	if err != nil {
		return nil, err
	}

	resp, err := s.exec(ctx, []any{"GET", key})
	if err != nil {
		return nil, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrHistoryNotFound
	}

	var encoded string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, fmt.Errorf("decode history payload: %w", err)
	}

	var entries []contractx.HistoryEntry
	if err := json.Unmarshal([]byte(encoded), &entries); err != nil {
		return nil, fmt.Errorf("unmarshal history entries: %w", err)
	}

	return entries, nil
}

func (s *UpstashHistoryStore) Save(ctx context.Context, conversationID string, entries []contractx.HistoryEntry) error {
	key, err := s.redisKey(conversationID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal history entries: %w", err)
	}

	cmd := []any{"SET", key, string(payload)}
	if s.ttl > 0 {
		cmd = append(cmd, "EX", int64(s.ttl/time.Second))
	}

	if _, err := s.exec(ctx, cmd); err != nil {
		return err
	}
	return nil
}

func (s *UpstashHistoryStore) Delete(ctx context.Context, conversationID string) error {
	key, err := s.redisKey(conversationID)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, []any{"DEL", key})
	return err
}

func (s *UpstashHistoryStore) redisKey(conversationID string) (string, error) {
	if strings.TrimSpace(conversationID) == "" {
		return "", ErrInvalidConversID
	}
	return s.keyPrefix + conversationID, nil
}

func (s *UpstashHistoryStore) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("redis error: %s", parsed.Error)
	}
	return &parsed, nil
}
