package errx

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapRedis(t *testing.T) {
	assert.NoError(t, WrapRedis(nil))

	err := WrapRedis(redis.Nil)
	assert.True(t, IsKind(err, KindNotFound))
	assert.ErrorIs(t, err, redis.Nil)

	err = WrapRedis(errors.New("connection refused"))
	assert.True(t, IsKind(err, KindStorage))
	assert.Contains(t, err.Error(), RedisErrorMessage)

	err = WrapRedis(fmt.Errorf("get: %w", context.DeadlineExceeded))
	assert.True(t, IsKind(err, KindTimeout))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorkflowError(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := NewWorkflowError("generate_response", cause)
	require.Error(t, err)

	stage, ok := StageOf(fmt.Errorf("ask: %w", err))
	assert.True(t, ok)
	assert.Equal(t, "generate_response", stage)
	assert.ErrorIs(t, err, cause)

	// an existing workflow error keeps its original stage
	again := NewWorkflowError("orchestrator", err)
	stage, _ = StageOf(again)
	assert.Equal(t, "generate_response", stage)

	assert.NoError(t, NewWorkflowError("orchestrator", nil))
}

func TestDegraded(t *testing.T) {
	cause := errors.New("boom")
	d := Degrade("Search failed for 'x': boom", cause)
	assert.Equal(t, "Search failed for 'x': boom", d.Error())
	assert.ErrorIs(t, d, cause)
}

func TestConfigErrorRemediation(t *testing.T) {
	err := MissingCredential("gemini_api_key", "GEMINI_API_KEY", "/home/me/.sagely/config.json")
	msg := err.Error()
	assert.Contains(t, msg, "export GEMINI_API_KEY=")
	assert.Contains(t, msg, "sagely config set gemini_api_key=")
	assert.Contains(t, msg, "/home/me/.sagely/config.json")
}
