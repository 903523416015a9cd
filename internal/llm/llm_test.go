package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFence(t *testing.T) {
	t.Run("no fence", func(t *testing.T) {
		assert.Equal(t, "plain text", StripFence("  plain text \n"))
	})

	t.Run("language fence", func(t *testing.T) {
		assert.Equal(t, "- a\n- b", StripFence("```markdown\n- a\n- b\n```"))
	})

	t.Run("bare fence", func(t *testing.T) {
		assert.Equal(t, "body", StripFence("```\nbody\n```\n"))
	})

	t.Run("fence only", func(t *testing.T) {
		assert.Equal(t, "", StripFence("```"))
	})
}

func TestNewClient_Model(t *testing.T) {
	c := NewClient("test-key", "claude-haiku-4-5-20251001")
	assert.Equal(t, "claude-haiku-4-5-20251001", c.Model())
}

// flakyCompleter fails the first n calls.
type flakyCompleter struct {
	mu       sync.Mutex
	failures int
	calls    int
	delay    time.Duration
}

func (f *flakyCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if call <= f.failures {
		return "", errors.New("transient")
	}
	return system + "|" + user, nil
}

func TestResilient_RetriesTransientFailure(t *testing.T) {
	inner := &flakyCompleter{failures: 1}
	r := NewResilient(inner, 2, 5*time.Second).WithInitialDelay(10 * time.Millisecond)

	out, err := r.Complete(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, "sys|usr", out)
	assert.Equal(t, 2, inner.calls)
}

func TestResilient_GivesUpAfterMaxAttempts(t *testing.T) {
	inner := &flakyCompleter{failures: 5}
	r := NewResilient(inner, 2, 5*time.Second).WithInitialDelay(10 * time.Millisecond)

	_, err := r.Complete(context.Background(), "sys", "usr")
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestResilient_Timeout(t *testing.T) {
	inner := &flakyCompleter{delay: 2 * time.Second}
	r := NewResilient(inner, 1, 50*time.Millisecond)

	start := time.Now()
	_, err := r.Complete(context.Background(), "sys", "usr")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewResilient_Defaults(t *testing.T) {
	r := NewResilient(&flakyCompleter{}, 0, 0)
	assert.Equal(t, 1, r.maxAttempts)
	assert.Equal(t, 300*time.Second, r.timeout)
	assert.Equal(t, time.Second, r.initialDelay)
}
