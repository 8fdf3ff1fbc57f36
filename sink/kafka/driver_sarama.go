package kafka

import (
	"fmt"
	"sync"

	"github.com/IBM/sarama"

	"titanic/internal/logging"
	"titanic/sink"
)

type Config struct {
	Brokers       []string `yaml:"brokers"`
	Topic         string   `yaml:"topic"`
	Acks          int16    `yaml:"required_acks"` // 0,1,-1
	Version       string   `yaml:"version"`
	IncludeRecord bool     `yaml:"include_record"`
}

// ProducerFunc builds the async producer behind the sink.
type ProducerFunc func(brokers []string, cfg *sarama.Config) (sarama.AsyncProducer, error)

type driver struct {
	cfg         Config
	newProducer ProducerFunc
	p           sarama.AsyncProducer

	drained   sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// New returns a Kafka sink using newProducer; nil means sarama.NewAsyncProducer.
func New(newProducer ProducerFunc) sink.Adapter {
	if newProducer == nil {
		newProducer = sarama.NewAsyncProducer
	}
	return &driver{newProducer: newProducer}
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: expected Config, got %T", c)
	}
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return fmt.Errorf("kafka-sink: brokers and topic are required")
	}
	d.cfg = cfg

	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Acks)
	sc.Producer.Return.Errors = true
	if cfg.Version != "" {
		v, err := sarama.ParseKafkaVersion(cfg.Version)
		if err != nil {
			return fmt.Errorf("kafka-sink: %w", err)
		}
		sc.Version = v
	}
	p, err := d.newProducer(cfg.Brokers, sc)
	if err != nil {
		return fmt.Errorf("kafka-sink: %w", err)
	}
	d.p = p

	d.drained.Add(1)
	go d.drainErrors()
	return nil
}

func (d *driver) drainErrors() {
	defer d.drained.Done()
	log := logging.With("sink.kafka")
	for perr := range d.p.Errors() {
		log.Error("produce failed", "topic", perr.Msg.Topic, "err", perr.Err)
	}
}

func (d *driver) Push(p sink.Prediction) error {
	if d.p == nil {
		return fmt.Errorf("kafka-sink: not configured")
	}
	b, err := sink.Encode(p, d.cfg.IncludeRecord)
	if err != nil {
		return fmt.Errorf("kafka-sink: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: d.cfg.Topic,
		Value: sarama.ByteEncoder(b),
	}
	if len(p.Key) > 0 {
		msg.Key = sarama.ByteEncoder(p.Key)
	}
	d.p.Input() <- msg
	return nil
}

func (d *driver) Close() error {
	d.closeOnce.Do(func() {
		if d.p == nil {
			return
		}
		d.closeErr = d.p.Close()
		d.drained.Wait()
	})
	return d.closeErr
}

func init() { sink.Register("kafka", func() sink.Adapter { return New(nil) }) }
