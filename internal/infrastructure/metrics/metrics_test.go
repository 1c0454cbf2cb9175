package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSearchObserver(t *testing.T) {
	var o SearchObserver

	before := testutil.ToFloat64(TranslationsTotal.WithLabelValues("triple", "ok"))
	o.ObserveTranslation("triple", "")
	assert.Equal(t, before+1, testutil.ToFloat64(TranslationsTotal.WithLabelValues("triple", "ok")))

	before = testutil.ToFloat64(TranslationsTotal.WithLabelValues("triple", "INVALID_NUMBER"))
	o.ObserveTranslation("triple", "INVALID_NUMBER")
	assert.Equal(t, before+1, testutil.ToFloat64(TranslationsTotal.WithLabelValues("triple", "INVALID_NUMBER")))

	o.ObserveExecution(time.Millisecond, errors.New("boom"))
	assert.Equal(t, 1, testutil.CollectAndCount(ExecutionDuration))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "ok", Status(nil))
	assert.Equal(t, "error", Status(errors.New("x")))
}
