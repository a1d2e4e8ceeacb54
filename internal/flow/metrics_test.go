package flow_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/checkout-sdk/internal/flow"
	"github.com/yourorg/checkout-sdk/internal/wire"
)

// The flow metrics are registered globally via promauto, so these tests
// assert on increments rather than absolute values.

func TestMetrics_SuccessfulFlow(t *testing.T) {
	initialFinished := testutil.ToFloat64(flow.GetFlowsFinishedTotal().WithLabelValues(string(flow.FinalSuccess)))
	initialDecoded := testutil.ToFloat64(flow.GetOutcomesDecodedTotal().WithLabelValues("complete"))

	transport := &fakeTransport{responses: [][]byte{[]byte(completeAuthorised)}}
	driver, _ := startedDriver(t, transport, nil)
	require.NoError(t, driver.SelectMethod(newTrace(), wire.PaymentMethod{Type: "paypal"}))
	require.Equal(t, flow.StateFinished, driver.State())

	finished := testutil.ToFloat64(flow.GetFlowsFinishedTotal().WithLabelValues(string(flow.FinalSuccess)))
	decoded := testutil.ToFloat64(flow.GetOutcomesDecodedTotal().WithLabelValues("complete"))
	require.Equal(t, initialFinished+1, finished)
	require.Equal(t, initialDecoded+1, decoded)
}

func TestMetrics_DecodeFailure(t *testing.T) {
	initial := testutil.ToFloat64(flow.GetDecodeFailuresTotal().WithLabelValues(string(wire.MISSING_DISCRIMINATOR)))

	transport := &fakeTransport{responses: [][]byte{[]byte(`{}`)}}
	driver, _ := startedDriver(t, transport, nil)
	require.NoError(t, driver.SelectMethod(newTrace(), wire.PaymentMethod{Type: "paypal"}))

	final := testutil.ToFloat64(flow.GetDecodeFailuresTotal().WithLabelValues(string(wire.MISSING_DISCRIMINATOR)))
	require.Equal(t, initial+1, final)
}

func TestMetrics_CancelledFlow(t *testing.T) {
	initial := testutil.ToFloat64(flow.GetFlowsFinishedTotal().WithLabelValues(string(flow.FinalCancelled)))

	driver, _ := startedDriver(t, &fakeTransport{}, nil)
	require.NoError(t, driver.Cancel())

	final := testutil.ToFloat64(flow.GetFlowsFinishedTotal().WithLabelValues(string(flow.FinalCancelled)))
	require.Equal(t, initial+1, final)
}
