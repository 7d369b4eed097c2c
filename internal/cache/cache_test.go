package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowKey_Deterministic(t *testing.T) {
	t.Parallel()

	a := WorkflowKey("urban farming", "low budget", "top=3")
	b := WorkflowKey("urban farming", "low budget", "top=3")
	c := WorkflowKey("urban farming", "low budget", "top=2")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestWorkflowKey_SeparatorAmbiguity(t *testing.T) {
	t.Parallel()

	// ("ab","c") and ("a","bc") must not collide.
	assert.NotEqual(t, WorkflowKey("ab", "c", ""), WorkflowKey("a", "bc", ""))
}

func TestMemory_WorkflowRoundTrip(t *testing.T) {
	t.Parallel()

	m := NewMemory(0)
	defer m.Close()
	ctx := context.Background()

	_, hit := m.GetWorkflow(ctx, "t", "c", "o")
	assert.False(t, hit)

	m.PutWorkflow(ctx, "t", "c", "o", []byte(`{"ok":true}`), time.Minute)
	got, hit := m.GetWorkflow(ctx, "t", "c", "o")
	require.True(t, hit)
	assert.Equal(t, `{"ok":true}`, string(got))
}

func TestMemory_AgentRoundTripAndExpiry(t *testing.T) {
	t.Parallel()

	m := NewMemory(0)
	defer m.Close()
	ctx := context.Background()

	m.PutAgent(ctx, "critic", "prompt-1", "response", 20*time.Millisecond)
	got, hit := m.GetAgent(ctx, "critic", "prompt-1")
	require.True(t, hit)
	assert.Equal(t, "response", got)

	time.Sleep(40 * time.Millisecond)
	_, hit = m.GetAgent(ctx, "critic", "prompt-1")
	assert.False(t, hit)
}

func TestMemory_ZeroTTLIsNoop(t *testing.T) {
	t.Parallel()

	m := NewMemory(0)
	defer m.Close()
	m.PutAgent(context.Background(), "critic", "k", "v", 0)
	_, hit := m.GetAgent(context.Background(), "critic", "k")
	assert.False(t, hit)
}

func TestMemory_InvalidateAndClear(t *testing.T) {
	t.Parallel()

	m := NewMemory(0)
	defer m.Close()
	ctx := context.Background()

	m.PutAgent(ctx, "critic", "k1", "v", time.Minute)
	m.PutAgent(ctx, "advocate", "k2", "v", time.Minute)
	m.PutWorkflow(ctx, "t", "c", "o", []byte("v"), time.Minute)
	require.Equal(t, 3, m.Len())

	require.NoError(t, m.Invalidate(ctx, "ideaforge:agent:critic:*"))
	_, hit := m.GetAgent(ctx, "critic", "k1")
	assert.False(t, hit)
	_, hit = m.GetAgent(ctx, "advocate", "k2")
	assert.True(t, hit)

	require.NoError(t, m.Clear(ctx))
	assert.Equal(t, 0, m.Len())
}

func TestMemory_BackgroundSweep(t *testing.T) {
	t.Parallel()

	m := NewMemory(10 * time.Millisecond)
	defer m.Close()
	m.PutAgent(context.Background(), "a", "k", "v", 5*time.Millisecond)

	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func newMiniRedis(t *testing.T) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisFromClient(client)
}

func TestRedis_WorkflowRoundTrip(t *testing.T) {
	r := newMiniRedis(t)
	ctx := context.Background()

	_, hit := r.GetWorkflow(ctx, "t", "c", "o")
	assert.False(t, hit)

	r.PutWorkflow(ctx, "t", "c", "o", []byte("payload"), time.Minute)
	got, hit := r.GetWorkflow(ctx, "t", "c", "o")
	require.True(t, hit)
	assert.Equal(t, "payload", string(got))
}

func TestRedis_AgentRoundTrip(t *testing.T) {
	r := newMiniRedis(t)
	ctx := context.Background()

	r.PutAgent(ctx, "skeptic", "prompt", "text", time.Minute)
	got, hit := r.GetAgent(ctx, "skeptic", "prompt")
	require.True(t, hit)
	assert.Equal(t, "text", got)
}

func TestRedis_InvalidateAndClear(t *testing.T) {
	r := newMiniRedis(t)
	ctx := context.Background()

	r.PutAgent(ctx, "critic", "k1", "v", time.Minute)
	r.PutWorkflow(ctx, "t", "c", "o", []byte("v"), time.Minute)

	require.NoError(t, r.Invalidate(ctx, "ideaforge:agent:*"))
	_, hit := r.GetAgent(ctx, "critic", "k1")
	assert.False(t, hit)
	_, hit = r.GetWorkflow(ctx, "t", "c", "o")
	assert.True(t, hit)

	require.NoError(t, r.Clear(ctx))
	_, hit = r.GetWorkflow(ctx, "t", "c", "o")
	assert.False(t, hit)
}

func TestRedis_DownIsAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { client.Close() })
	r := NewRedisFromClient(client)

	ctx := context.Background()
	_, hit := r.GetWorkflow(ctx, "t", "c", "o")
	assert.False(t, hit)
	// Put must not panic or block.
	r.PutWorkflow(ctx, "t", "c", "o", []byte("v"), time.Minute)
}
