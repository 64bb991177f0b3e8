package imagine

import (
	"context"
	"sync"
)

// MockImageGenerator is a mock implementation of ImageGenerator.
type MockImageGenerator struct {
	GenerateFunc func(ctx context.Context, prompt string, config *GenerateConfig) (*GenerateResult, error)
	ModelsFunc   func() []ModelInfo
	CloseFunc    func() error
}

func (m *MockImageGenerator) Generate(ctx context.Context, prompt string, config *GenerateConfig) (*GenerateResult, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, config)
	}
	return &GenerateResult{Image: &Image{Data: []byte("png"), MIMEType: MIMETypePNG}}, nil
}

func (m *MockImageGenerator) Models() []ModelInfo {
	if m.ModelsFunc != nil {
		return m.ModelsFunc()
	}
	return []ModelInfo{{Name: "test-model", Provider: "test-provider", APIModelName: "test-model-api"}}
}

func (m *MockImageGenerator) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// memStore is a KeyValueStore that can be told to fail writes.
type memStore struct {
	slots    map[string]string
	failSet  error
	failGet  error
	setCalls int
	mu       sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{slots: make(map[string]string)}
}

func (s *memStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return "", false, s.failGet
	}
	v, ok := s.slots[key]
	return v, ok, nil
}

func (s *memStore) Set(ctx context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCalls++
	if s.failSet != nil {
		return s.failSet
	}
	s.slots[key] = value
	return nil
}

func (s *memStore) raw(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[key]
}
