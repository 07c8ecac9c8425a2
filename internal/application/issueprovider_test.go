package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mwalcott/reqtrack/internal/application"
	"github.com/mwalcott/reqtrack/internal/domain/model"
)

type stubLookup struct{ name string }

func (s *stubLookup) IssueStatus(context.Context, string, int) (*model.IssueStatus, error) {
	return nil, nil
}

func TestIssueLookupProvider(t *testing.T) {
	provider := application.NewIssueLookupProvider(nil)
	assert.False(t, provider.HasLookup())
	assert.Nil(t, provider.Get())

	first := &stubLookup{name: "first"}
	provider.Replace(first)
	assert.True(t, provider.HasLookup())
	assert.Same(t, first, provider.Get())

	second := &stubLookup{name: "second"}
	provider.Replace(second)
	assert.Same(t, second, provider.Get())
}
