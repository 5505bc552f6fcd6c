package requestid

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	ctx, id := New(context.Background())
	assert.NotEmpty(t, id)
	assert.Equal(t, id, FromContext(ctx))
}

func TestFromContext_Missing(t *testing.T) {
	id := FromContext(context.Background())
	assert.NotEmpty(t, id) // generates new UUID
}

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "test-123")
	assert.Equal(t, "test-123", FromContext(ctx))
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "client-abc", Resolve("client-abc"))
	assert.Equal(t, "client-abc", Resolve("  client-abc "))

	for _, bad := range []string{"", "has space", "tab\tid", strings.Repeat("x", 129)} {
		got := Resolve(bad)
		assert.NotEqual(t, bad, got)
		assert.Len(t, got, 36)
	}
}
