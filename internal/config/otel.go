package config

import "fmt"

type Otel struct {
	ServiceName   string  `env:"OTEL_SERVICE_NAME" envDefault:"orders-inventory"`
	CollectorURL  string  `env:"OTEL_COLLECTOR_URL"`
	Insecure      bool    `env:"OTEL_INSECURE"`
	TraceIDRatio  float64 `env:"OTEL_TRACE_ID_RATIO" envDefault:"0.1"`
	CollectorAuth string  `env:"OTEL_COLLECTOR_AUTH"`

	K8sPodName   string `env:"K8S_POD_NAME"`
	K8sNamespace string `env:"K8S_NAMESPACE"`
}

func (c Otel) Validate() error {
	if c.TraceIDRatio < 0 || c.TraceIDRatio > 1 {
		return fmt.Errorf("trace id ratio must be within [0, 1], got %v", c.TraceIDRatio)
	}
	return nil
}
