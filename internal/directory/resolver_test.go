// internal/directory/resolver_test.go
package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"comms-delivery/internal/common/logger"
)

type MockLookup struct {
	FindContactsFunc func(ctx context.Context, contextKey, relatedEntityID string) ([]ContactRecord, error)
}

func (m *MockLookup) FindContacts(ctx context.Context, contextKey, relatedEntityID string) ([]ContactRecord, error) {
	return m.FindContactsFunc(ctx, contextKey, relatedEntityID)
}

func TestResolve_UserIDTakesPriority(t *testing.T) {
	var gotContext, gotEntity string
	lookup := &MockLookup{
		FindContactsFunc: func(ctx context.Context, contextKey, relatedEntityID string) ([]ContactRecord, error) {
			gotContext = contextKey
			gotEntity = relatedEntityID
			return []ContactRecord{{ID: "c1", Email: "u@example.com"}}, nil
		},
	}
	r := NewResolver(lookup, logger.NewTestLogger(t))

	addr := r.Resolve(context.Background(), "user-1", "contact-1")
	assert.Equal(t, ContextUser, gotContext)
	assert.Equal(t, "user-1", gotEntity)
	assert.Equal(t, "u@example.com", addr.Email)
}

func TestResolve_FallsBackToContactID(t *testing.T) {
	var gotContext, gotEntity string
	lookup := &MockLookup{
		FindContactsFunc: func(ctx context.Context, contextKey, relatedEntityID string) ([]ContactRecord, error) {
			gotContext = contextKey
			gotEntity = relatedEntityID
			return nil, nil
		},
	}
	r := NewResolver(lookup, logger.NewTestLogger(t))

	addr := r.Resolve(context.Background(), "", "contact-1")
	assert.Equal(t, ContextOrgContact, gotContext)
	assert.Equal(t, "contact-1", gotEntity)
	assert.True(t, addr.Empty())
}

func TestResolve_ScansRecordsIndependently(t *testing.T) {
	// Email from the second record, phone from the third; per-channel
	// first-wins across records.
	lookup := &MockLookup{
		FindContactsFunc: func(ctx context.Context, contextKey, relatedEntityID string) ([]ContactRecord, error) {
			return []ContactRecord{
				{ID: "c1"},
				{ID: "c2", Email: "first@example.com"},
				{ID: "c3", Email: "second@example.com", Phone: "+15550100"},
			}, nil
		},
	}
	r := NewResolver(lookup, logger.NewTestLogger(t))

	addr := r.Resolve(context.Background(), "user-1", "")
	assert.Equal(t, "first@example.com", addr.Email)
	assert.Equal(t, "+15550100", addr.Phone)
}

func TestResolve_LookupFailureYieldsEmptyAddress(t *testing.T) {
	lookup := &MockLookup{
		FindContactsFunc: func(ctx context.Context, contextKey, relatedEntityID string) ([]ContactRecord, error) {
			return nil, errors.New("directory unreachable")
		},
	}
	r := NewResolver(lookup, logger.NewTestLogger(t))

	addr := r.Resolve(context.Background(), "user-1", "")
	assert.True(t, addr.Empty())
}

func TestResolve_NoIdentity(t *testing.T) {
	called := false
	lookup := &MockLookup{
		FindContactsFunc: func(ctx context.Context, contextKey, relatedEntityID string) ([]ContactRecord, error) {
			called = true
			return nil, nil
		},
	}
	r := NewResolver(lookup, logger.NewTestLogger(t))

	addr := r.Resolve(context.Background(), "", "")
	assert.True(t, addr.Empty())
	assert.False(t, called)
}
