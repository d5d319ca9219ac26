package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New()
	m.ObserveOperation("CreateExpense", "ok")
	m.ObserveOperation("CreateExpense", "ok")
	m.ObserveOperation("CreateExpense", "validation")
	m.IntegrityError()
	m.ObserveSettlement(2)
	m.ObserveRPC("/grocerysplit.v1.LedgerService/CreateExpense", "ok", 15*time.Millisecond)
	m.Notification("dropped")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("CreateExpense", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.integrityErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("dropped")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "grocerysplit_ledger_operations_total"))
	assert.True(t, strings.Contains(body, "grocerysplit_settlement_plan_transfers_bucket"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveOperation("x", "ok")
	m.IntegrityError()
	m.ObserveSettlement(1)
	m.ObserveRPC("p", "ok", time.Second)
	m.Notification("delivered")
}
