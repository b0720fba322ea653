package tokens

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/wafwatch/wafwatch/pkg/crypto"
)

// InMemoryTokenStorer is a token storage backend which stores tokens in memory.
// Should only be used for development and testing.
type InMemoryTokenStorer struct {
	mu     sync.Mutex
	tokens []Token
}

// NewInMemoryTokenStorer initialises the in memory token storage
func NewInMemoryTokenStorer() *InMemoryTokenStorer {
	return &InMemoryTokenStorer{}
}

// Create a Token and store it in memory
func (s *InMemoryTokenStorer) Create(ctx context.Context, name string) (*Token, error) {
	ID, err := crypto.GenerateRandomToken()
	if err != nil {
		return nil, errors.Wrap(err, "generating token")
	}

	token := Token{
		ID:   ID,
		Name: name,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = append(s.tokens, token)

	return &token, nil
}

// Delete a token from memory
func (s *InMemoryTokenStorer) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tokens {
		if t.ID == id {
			s.tokens = append(s.tokens[:i], s.tokens[i+1:]...)
			return nil
		}
	}
	return ErrTokenNotFound
}

// Get a token by ID
func (s *InMemoryTokenStorer) Get(ctx context.Context, id string) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.ID == id {
			found := t
			return &found, nil
		}
	}
	return nil, ErrTokenNotFound
}

// List all tokens
func (s *InMemoryTokenStorer) List(ctx context.Context) ([]Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Token, len(s.tokens))
	copy(out, s.tokens)
	return out, nil
}
