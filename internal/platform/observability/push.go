package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends every registered metric to a Pushgateway. One-shot runs exit
// before a scraper could see them.
func Push(ctx context.Context, gatewayURL, job string) error {
	return PushFrom(ctx, prometheus.DefaultGatherer, gatewayURL, job)
}

func PushFrom(ctx context.Context, g prometheus.Gatherer, gatewayURL, job string) error {
	if err := push.New(gatewayURL, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}

	return nil
}
