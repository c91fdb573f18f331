package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryInflightGuard(t *testing.T) {
	ctx := context.Background()
	guard := NewMemoryInflightGuard(time.Minute)

	first, err := guard.Acquire(ctx, "a")
	assert.NoError(t, err)
	assert.True(t, first)

	second, _ := guard.Acquire(ctx, "a")
	assert.False(t, second)

	other, _ := guard.Acquire(ctx, "b")
	assert.True(t, other)

	guard.Release(ctx, "a")
	again, _ := guard.Acquire(ctx, "a")
	assert.True(t, again)
}
