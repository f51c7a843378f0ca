package kafka

import "time"

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

// ProducerConfig holds Kafka producer configuration.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int
	Compression  string
	MaxAttempts  int
	BatchSize    int
	BatchBytes   int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	Async        bool
	HashByKey    bool
}

// WithBrokers sets broker addresses.
func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Brokers = brokers
	}
}

// WithRequiredAcks sets required acks (-1 all, 0 none, 1 leader).
func WithRequiredAcks(acks int) ProducerOption {
	return func(c *ProducerConfig) {
		c.RequiredAcks = acks
	}
}

// WithCompression sets compression codec name.
func WithCompression(codec string) ProducerOption {
	return func(c *ProducerConfig) {
		if codec != "" {
			c.Compression = codec
		}
	}
}

// WithMaxAttempts sets max write attempts.
func WithMaxAttempts(n int) ProducerOption {
	return func(c *ProducerConfig) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

// WithBatchSize sets messages per batch.
func WithBatchSize(n int) ProducerOption {
	return func(c *ProducerConfig) {
		if n > 0 {
			c.BatchSize = n
		}
	}
}

// WithBatchBytes sets max bytes per batch.
func WithBatchBytes(n int) ProducerOption {
	return func(c *ProducerConfig) {
		if n > 0 {
			c.BatchBytes = n
		}
	}
}

// WithBatchTimeout sets linger time before flushing a batch.
func WithBatchTimeout(d time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if d > 0 {
			c.BatchTimeout = d
		}
	}
}

// WithTimeouts sets write/read timeouts.
func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if write > 0 {
			c.WriteTimeout = write
		}
		if read > 0 {
			c.ReadTimeout = read
		}
	}
}

// WithAsync enables fire-and-forget writes.
func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) {
		c.Async = async
	}
}

// WithHashByKey partitions messages by key hash instead of least-bytes.
func WithHashByKey(enabled bool) ProducerOption {
	return func(c *ProducerConfig) {
		c.HashByKey = enabled
	}
}
