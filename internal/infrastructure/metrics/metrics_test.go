package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordDecision(t *testing.T) {
	before := testutil.ToFloat64(DecisionsTotal.WithLabelValues("suggestAction", "approved", "true"))
	RecordDecision("suggestAction", "approved", true)
	after := testutil.ToFloat64(DecisionsTotal.WithLabelValues("suggestAction", "approved", "true"))
	assert.Equal(t, before+1, after)
}

func TestRecordClaimCache(t *testing.T) {
	hits := testutil.ToFloat64(ClaimCacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(ClaimCacheLookups.WithLabelValues("miss"))

	RecordClaimCache(true)
	RecordClaimCache(false)
	RecordClaimCache(false)

	assert.Equal(t, hits+1, testutil.ToFloat64(ClaimCacheLookups.WithLabelValues("hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(ClaimCacheLookups.WithLabelValues("miss")))
}

func TestRecordTurn(t *testing.T) {
	before := testutil.ToFloat64(TurnsTotal.WithLabelValues("step-limit"))
	RecordTurn("step-limit", 5)
	assert.Equal(t, before+1, testutil.ToFloat64(TurnsTotal.WithLabelValues("step-limit")))
}
