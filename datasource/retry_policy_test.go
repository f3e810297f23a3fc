package datasource

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestRetryPolicyAllowsUpToFetchRetries(t *testing.T) {
	policy := newRetryPolicy()

	retry, attempts := policy.RecordFailure("l1", DirectionForward, "p1", 2)
	assert.Equal(t, true, retry)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, false, policy.IsAbandoned("l1", DirectionForward))

	retry, attempts = policy.RecordFailure("l1", DirectionForward, "p1", 2)
	assert.Equal(t, true, retry)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, false, policy.IsAbandoned("l1", DirectionForward))

	retry, attempts = policy.RecordFailure("l1", DirectionForward, "p1", 2)
	assert.Equal(t, false, retry)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, true, policy.IsAbandoned("l1", DirectionForward))
}

func TestRetryPolicyDirectionsAreIndependent(t *testing.T) {
	policy := newRetryPolicy()
	policy.RecordFailure("l1", DirectionForward, "p1", 0)
	assert.Equal(t, true, policy.IsAbandoned("l1", DirectionForward))
	assert.Equal(t, false, policy.IsAbandoned("l1", DirectionBackward))
}

func TestRetryPolicyResetClearsAbandonment(t *testing.T) {
	policy := newRetryPolicy()
	policy.RecordFailure("l1", DirectionForward, "p1", 0)
	assert.Equal(t, true, policy.IsAbandoned("l1", DirectionForward))

	policy.Reset("l1", DirectionForward)
	assert.Equal(t, false, policy.IsAbandoned("l1", DirectionForward))
}

func TestRetryPolicyNewPageTokenStartsFresh(t *testing.T) {
	policy := newRetryPolicy()
	policy.RecordFailure("l1", DirectionForward, "p1", 1)
	retry, attempts := policy.RecordFailure("l1", DirectionForward, "p2", 1)
	assert.Equal(t, true, retry)
	assert.Equal(t, 1, attempts)
}

func TestRetryPolicyHonorsUpdatedBudgetPerCall(t *testing.T) {
	// A Configure call that changes FetchRetries must take effect on the
	// very next failure for a frontier already in flight, not just for
	// lists created afterward — the budget is never captured at
	// construction.
	policy := newRetryPolicy()
	retry, attempts := policy.RecordFailure("l1", DirectionForward, "p1", 5)
	assert.Equal(t, true, retry)
	assert.Equal(t, 1, attempts)

	retry, attempts = policy.RecordFailure("l1", DirectionForward, "p1", 0)
	assert.Equal(t, false, retry)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, true, policy.IsAbandoned("l1", DirectionForward))
}
