package memory

import (
	"context"
	"fmt"
	"sync"

	"budgetmail/internal/objstore"
)

// Store is an in-process objstore.Store. It records mutating calls so tests
// can assert that dry runs leave storage untouched.
type Store struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	copies  int
}

var _ objstore.Store = (*Store)(nil)

func New() *Store {
	return &Store{objects: map[string][]byte{}}
}

func id(bucket, key string) string { return bucket + "/" + key }

func (s *Store) Get(_ context.Context, bucket, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.objects[id(bucket, key)]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", bucket, key, objstore.ErrNotFound)
	}
	return append([]byte(nil), body...), nil
}

func (s *Store) Put(_ context.Context, bucket, key string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[id(bucket, key)] = append([]byte(nil), body...)
	s.puts++
	return nil
}

func (s *Store) Copy(_ context.Context, bucket, srcKey, dstKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.objects[id(bucket, srcKey)]
	if !ok {
		return fmt.Errorf("copy %s/%s: %w", bucket, srcKey, objstore.ErrNotFound)
	}
	s.objects[id(bucket, dstKey)] = append([]byte(nil), body...)
	s.copies++
	return nil
}

// Seed stores an object without counting it as a mutation.
func (s *Store) Seed(bucket, key string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[id(bucket, key)] = append([]byte(nil), body...)
}

// Mutations returns the number of Put and Copy calls made so far.
func (s *Store) Mutations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts + s.copies
}
