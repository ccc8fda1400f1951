package backend

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// metrics holds the small set of OTel counters BackendHost's components
// feed. There is no network exporter -- the manual reader keeps the data
// in-process, matching the ambient (not network) framing of observability
// here.
type metrics struct {
	provider *sdkmetric.MeterProvider

	discoveryTicks metric.Int64Counter
	tcMutations    metric.Int64Counter
	scenarioSteps  metric.Int64Counter
}

func newMetrics() *metrics {
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	meter := provider.Meter("tcmesh/backend")

	m := &metrics{provider: provider}
	m.discoveryTicks, _ = meter.Int64Counter("tcmesh.discovery.ticks",
		metric.WithDescription("interface discovery ticks completed"))
	m.tcMutations, _ = meter.Int64Counter("tcmesh.tc.mutations",
		metric.WithDescription("TC apply/remove operations completed"))
	m.scenarioSteps, _ = meter.Int64Counter("tcmesh.scenario.steps",
		metric.WithDescription("scenario steps applied"))
	return m
}

func (m *metrics) incDiscoveryTick() { m.discoveryTicks.Add(context.Background(), 1) }
func (m *metrics) incTcMutation()    { m.tcMutations.Add(context.Background(), 1) }
func (m *metrics) incScenarioStep()  { m.scenarioSteps.Add(context.Background(), 1) }

func (m *metrics) shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
