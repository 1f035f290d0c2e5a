package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
	"github.com/vladislavdragonenkov/comptoirs/internal/messaging/kafka"
)

const (
	defaultReplayLimit = 100
	defaultIdleTimeout = 2 * time.Second
	envKafkaBrokers    = "COMPTOIRS_KAFKA_BROKERS"
)

type config struct {
	brokers     []string
	sourceTopic string
	targetTopic string
	limit       int
	execute     bool
	fromNewest  bool
	idleTimeout time.Duration
}

type offsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionConsumer interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type partitionConsumerSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error)
	Close() error
}

type saramaConsumerAdapter struct {
	consumer sarama.Consumer
}

func (a saramaConsumerAdapter) ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error) {
	pc, err := a.consumer.ConsumePartition(topic, partition, offset)
	if err != nil {
		return nil, err
	}
	return pc, nil
}

func (a saramaConsumerAdapter) Close() error {
	if a.consumer == nil {
		return nil
	}
	return a.consumer.Close()
}

// dependencies: подключения к Kafka для одного запуска. publisher == nil в режиме dry-run.
type dependencies struct {
	client    offsetClient
	consumer  partitionConsumerSource
	publisher domain.OutboxPublisher
	closers   []func() error
}

func (d dependencies) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		_ = d.closers[i]()
	}
}

type dependencyFactory func(cfg config, logger *log.Entry) (dependencies, error)

func connectKafka(cfg config, logger *log.Entry) (dependencies, error) {
	consumerConfig := sarama.NewConfig()
	consumerConfig.Consumer.Return.Errors = true

	client, err := sarama.NewClient(cfg.brokers, consumerConfig)
	if err != nil {
		return dependencies{}, errors.Wrap(err, "create kafka client")
	}
	rawConsumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return dependencies{}, errors.Wrap(err, "create kafka consumer")
	}
	consumer := saramaConsumerAdapter{consumer: rawConsumer}

	deps := dependencies{
		client:   client,
		consumer: consumer,
		closers:  []func() error{client.Close, consumer.Close},
	}
	if !cfg.execute {
		return deps, nil
	}

	producer, err := kafka.NewProducer(cfg.brokers, "comptoirs-dlq-reprocess")
	if err != nil {
		deps.close()
		return dependencies{}, err
	}
	deps.publisher = kafka.NewOutboxPublisher(producer, cfg.targetTopic)
	deps.closers = append(deps.closers, producer.Close)
	logger.WithField("brokers", cfg.brokers).Debug("kafka producer connected")
	return deps, nil
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(connectKafka)
}

func newRootCmdWith(connect dependencyFactory) *cobra.Command {
	var (
		brokersRaw string
		cfg        config
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:          "dlq-reprocess",
		Short:        "Replay order events from the outbox dead letter topic",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(brokersRaw) == "" {
				brokersRaw = os.Getenv(envKafkaBrokers)
			}
			cfg.brokers = parseBrokers(brokersRaw)
			if err := cfg.validate(); err != nil {
				return err
			}

			logger, err := newLogger(logLevel)
			if err != nil {
				return err
			}

			deps, err := connect(cfg, logger)
			if err != nil {
				return err
			}
			defer deps.close()

			r := &replayer{cfg: cfg, deps: deps, logger: logger}
			stats, err := r.run(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "dlq replay")
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: processed=%d replayed=%d skipped=%d\n",
				cfg.mode(), stats.processed, stats.replayed, stats.skipped)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&brokersRaw, "brokers", "", "Kafka brokers, comma-separated (fallback: "+envKafkaBrokers+")")
	flags.StringVar(&cfg.sourceTopic, "source-topic", kafka.TopicDeadLetterQueue, "dead letter topic to scan")
	flags.StringVar(&cfg.targetTopic, "target-topic", kafka.TopicOrderEvents, "topic to replay events into")
	flags.IntVar(&cfg.limit, "limit", defaultReplayLimit, "max number of messages to scan")
	flags.BoolVar(&cfg.execute, "execute", false, "publish replayed events; dry-run by default")
	flags.BoolVar(&cfg.fromNewest, "from-newest", false, "scan the latest messages of each partition")
	flags.DurationVar(&cfg.idleTimeout, "idle-timeout", defaultIdleTimeout, "stop reading a partition after this idle period")
	flags.StringVar(&logLevel, "log-level", "info", "log level")

	return cmd
}

func (c config) validate() error {
	switch {
	case len(c.brokers) == 0:
		return errors.New("kafka brokers are required (--brokers or " + envKafkaBrokers + ")")
	case strings.TrimSpace(c.sourceTopic) == "":
		return errors.New("source-topic is required")
	case strings.TrimSpace(c.targetTopic) == "":
		return errors.New("target-topic is required")
	case c.sourceTopic == c.targetTopic:
		return errors.New("source-topic and target-topic must differ")
	case c.limit <= 0:
		return errors.New("limit must be positive")
	case c.idleTimeout <= 0:
		return errors.New("idle-timeout must be positive")
	}
	return nil
}

func (c config) mode() string {
	if c.execute {
		return "execute"
	}
	return "dry-run"
}

func newLogger(level string) (*log.Entry, error) {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "parse log level")
	}
	logger := log.New()
	logger.SetLevel(parsed)
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return logger.WithField("component", "dlq-reprocess"), nil
}

func parseBrokers(raw string) []string {
	var brokers []string
	for _, chunk := range strings.Split(raw, ",") {
		if broker := strings.TrimSpace(chunk); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

type replayStats struct {
	processed int
	replayed  int
	skipped   int
}

func (s *replayStats) add(other replayStats) {
	s.processed += other.processed
	s.replayed += other.replayed
	s.skipped += other.skipped
}

type replayer struct {
	cfg    config
	deps   dependencies
	logger *log.Entry
}

func (r *replayer) run(ctx context.Context) (replayStats, error) {
	var total replayStats
	if r.deps.client == nil || r.deps.consumer == nil {
		return total, errors.New("kafka client and consumer are required")
	}
	if r.cfg.execute && r.deps.publisher == nil {
		return total, errors.New("publisher is required in execute mode")
	}

	partitions, err := r.deps.client.Partitions(r.cfg.sourceTopic)
	if err != nil {
		return total, errors.Wrapf(err, "get partitions for topic %s", r.cfg.sourceTopic)
	}
	if len(partitions) == 0 {
		r.logger.WithField("topic", r.cfg.sourceTopic).Warn("source topic has no partitions")
		return total, nil
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		if total.processed >= r.cfg.limit {
			break
		}
		stats, err := r.replayPartition(ctx, partition, r.cfg.limit-total.processed)
		total.add(stats)
		if err != nil {
			return total, err
		}
	}

	r.logger.WithFields(log.Fields{
		"mode":      r.cfg.mode(),
		"processed": total.processed,
		"replayed":  total.replayed,
		"skipped":   total.skipped,
	}).Info("dlq replay finished")
	return total, nil
}

func (r *replayer) replayPartition(ctx context.Context, partition int32, limit int) (replayStats, error) {
	var stats replayStats

	oldest, err := r.deps.client.GetOffset(r.cfg.sourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, errors.Wrapf(err, "get oldest offset for partition %d", partition)
	}
	newest, err := r.deps.client.GetOffset(r.cfg.sourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, errors.Wrapf(err, "get newest offset for partition %d", partition)
	}
	if newest <= oldest {
		return stats, nil
	}

	start := oldest
	if r.cfg.fromNewest {
		start = max(newest-int64(limit), oldest)
	}

	pc, err := r.deps.consumer.ConsumePartition(r.cfg.sourceTopic, partition, start)
	if err != nil {
		return stats, errors.Wrapf(err, "consume partition %d", partition)
	}
	defer func() { _ = pc.Close() }()

	idle := time.NewTimer(r.cfg.idleTimeout)
	defer idle.Stop()

	for stats.processed < limit {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case cerr := <-pc.Errors():
			if cerr != nil {
				return stats, errors.Wrapf(cerr, "partition %d consumer", partition)
			}
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil || msg.Offset >= newest {
				return stats, nil
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(r.cfg.idleTimeout)

			stats.processed++
			skip, err := r.replay(msg)
			if err != nil {
				return stats, err
			}
			if skip != nil {
				stats.skipped++
				r.logger.WithError(skip).WithFields(log.Fields{
					"partition": msg.Partition,
					"offset":    msg.Offset,
				}).Warn("skip dlq message")
			} else {
				stats.replayed++
			}

			if msg.Offset+1 >= newest {
				return stats, nil
			}
		case <-idle.C:
			return stats, nil
		}
	}
	return stats, nil
}

// replay возвращает причину пропуска нераспознанного сообщения либо ошибку публикации.
func (r *replayer) replay(msg *sarama.ConsumerMessage) (skip error, err error) {
	entry, skip := kafka.DecodeDLQMessage(msg.Value)
	if skip != nil {
		return skip, nil
	}

	fields := log.Fields{
		"partition":    msg.Partition,
		"offset":       msg.Offset,
		"outbox_id":    entry.Message.ID,
		"event_type":   entry.Message.EventType,
		"aggregate_id": entry.Message.AggregateID,
		"reason":       entry.PublishError,
	}
	if !r.cfg.execute {
		r.logger.WithFields(fields).Info("dlq replay candidate")
		return nil, nil
	}

	if err := r.deps.publisher.Publish(entry.Message); err != nil {
		return nil, errors.Wrapf(err, "publish replayed event %s", entry.Message.ID)
	}
	r.logger.WithFields(fields).Debug("dlq event replayed")
	return nil, nil
}
