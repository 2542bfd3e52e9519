package config

type Kafka struct {
	// Addresses may be empty in the standalone binary, which then relays
	// events through an in-process bus.
	Addresses []string `env:"KAFKA_ADDRESSES" envSeparator:","`
	Group     string   `env:"KAFKA_GROUP" envDefault:"orders-inventory"`
}

// Enabled reports whether a broker is configured.
func (k Kafka) Enabled() bool {
	return len(k.Addresses) > 0
}
