// Package cache provides keyed get/put with TTL for per-phase model
// responses and full workflow results. Cache failures are never fatal:
// every operation degrades to a miss and the pipeline proceeds.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is the capability the orchestrator consumes. Implementations must
// be safe for concurrent use across Runs.
type Cache interface {
	// GetWorkflow returns a serialized workflow result for the exact
	// (topic, context, optionsKey) tuple.
	GetWorkflow(ctx context.Context, topic, workflowContext, optionsKey string) ([]byte, bool)
	PutWorkflow(ctx context.Context, topic, workflowContext, optionsKey string, payload []byte, ttl time.Duration)

	// GetAgent returns a cached raw model response for one agent call.
	GetAgent(ctx context.Context, agent, promptKey string) (string, bool)
	PutAgent(ctx context.Context, agent, promptKey, text string, ttl time.Duration)

	// Invalidate removes entries whose key matches a glob-style pattern.
	Invalidate(ctx context.Context, pattern string) error
	Clear(ctx context.Context) error
}

const keyPrefix = "ideaforge"

// WorkflowKey derives the deterministic cache key for a workflow result.
// The optionsKey must already exclude transient fields (timeouts, logging).
func WorkflowKey(topic, workflowContext, optionsKey string) string {
	return keyPrefix + ":workflow:" + digest(topic, workflowContext, optionsKey)
}

// AgentKey derives the deterministic cache key for one agent call.
func AgentKey(agent, promptKey string) string {
	return keyPrefix + ":agent:" + agent + ":" + digest(promptKey)
}

func digest(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0}) // unambiguous separator
	}
	return hex.EncodeToString(h.Sum(nil))
}
