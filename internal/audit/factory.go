package audit

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/IvanVatroslav/SQLoslav/internal/config"
	"github.com/IvanVatroslav/SQLoslav/internal/observability"
)

const (
	SinkNone = "none"
	SinkNATS = "nats"
	SinkAMQP = "amqp"
)

// New returns the publisher selected by cfg.Sink.
func New(cfg config.AuditConfig, logger *slog.Logger) (Publisher, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Sink)) {
	case "", SinkNone:
		return Nop{}, nil
	case SinkNATS:
		publisher, err := NewNATSPublisher(cfg.NATSURL, cfg.NATSToken, cfg.NATSSubject, logger)
		if err != nil {
			return nil, err
		}
		return publisher, nil
	case SinkAMQP:
		publisher, err := NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
		if err != nil {
			return nil, err
		}
		return publisher, nil
	default:
		return nil, fmt.Errorf("unsupported audit sink %q", cfg.Sink)
	}
}
