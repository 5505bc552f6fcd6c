package health

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestChecker_AllHealthy(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("db", func(ctx context.Context) Status { return StatusOK })
	c.Register("bucket", func(ctx context.Context) Status { return StatusOK })

	assert.True(t, c.IsReady(context.Background()))
	assert.Equal(t, []string{"bucket", "db"}, c.Names())
}

func TestChecker_OneDown(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("db", func(ctx context.Context) Status { return StatusOK })
	c.Register("bucket", func(ctx context.Context) Status { return StatusDown })

	r := c.Evaluate(context.Background())
	assert.False(t, r.Ready())
	assert.Equal(t, "not_ready", r.Status)
	assert.Equal(t, StatusDown, r.Checks["bucket"])
	assert.Equal(t, r, c.Last())
}

func TestChecker_Degraded_StillReady(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("embeddings", func(ctx context.Context) Status { return StatusDegraded })

	assert.True(t, c.IsReady(context.Background()))
}

func TestChecker_NoChecks(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	assert.True(t, c.IsReady(context.Background()))
	assert.Empty(t, c.Last().Checks)
}

func TestPingCheck(t *testing.T) {
	assert.Equal(t, StatusOK, PingCheck(pinger{})(context.Background()))
	assert.Equal(t, StatusDown, PingCheck(pinger{err: errors.New("database is locked")})(context.Background()))
}
