package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, r *Registry, name string, labelName, labelValue string) float64 {
	t.Helper()
	families, err := r.Registerer().Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			if labelName == "" {
				return m.GetCounter().GetValue()
			}
			for _, l := range m.GetLabel() {
				if l.GetName() == labelName && l.GetValue() == labelValue {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %q with label %s=%s not found", name, labelName, labelValue)
	return 0
}

func TestRecordValidationIncrementsCounterByOutcome(t *testing.T) {
	r := NewRegistry()
	r.RecordValidation("accept", 10*time.Millisecond, 2)
	r.RecordValidation("accept", 5*time.Millisecond, 0)
	r.RecordValidation("reject", 1*time.Millisecond, 1)

	assert.Equal(t, float64(2), counterValue(t, r, "trustschema_validations_total", "outcome", "accept"))
	assert.Equal(t, float64(1), counterValue(t, r, "trustschema_validations_total", "outcome", "reject"))
}

func TestRecordCacheHitAndMiss(t *testing.T) {
	r := NewRegistry()
	r.RecordCacheHit()
	r.RecordCacheHit()
	r.RecordCacheMiss()

	assert.Equal(t, float64(2), counterValue(t, r, "trustschema_cert_cache_hits_total", "", ""))
	assert.Equal(t, float64(1), counterValue(t, r, "trustschema_cert_cache_misses_total", "", ""))
}

func TestRecordSignOperationOnlyObservesChainLengthOnSuccess(t *testing.T) {
	r := NewRegistry()
	r.RecordSignOperation("success", 3)
	r.RecordSignOperation("failure", 0)

	assert.Equal(t, float64(1), counterValue(t, r, "trustschema_sign_operations_total", "outcome", "success"))
	assert.Equal(t, float64(1), counterValue(t, r, "trustschema_sign_operations_total", "outcome", "failure"))
	assert.Equal(t, float64(3), counterValue(t, r, "trustschema_certificates_issued_total", "", ""))
}

func TestRecordMaxStepsExceededAndReplayRejection(t *testing.T) {
	r := NewRegistry()
	r.RecordMaxStepsExceeded()
	r.RecordReplayRejection("pre-verify")
	r.RecordReplayRejection("pre-verify")

	assert.Equal(t, float64(1), counterValue(t, r, "trustschema_validation_max_steps_exceeded_total", "", ""))
	assert.Equal(t, float64(2), counterValue(t, r, "trustschema_replay_rejections_total", "reason", "pre-verify"))
}
