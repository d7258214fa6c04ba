package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/gdg-paro/eventsync/model"
	"github.com/gdg-paro/eventsync/postgres"
	eventRedis "github.com/gdg-paro/eventsync/redis"
)

// EventSource provides the authoritative event list to warm the cache from.
type EventSource interface {
	FindEvents(ctx context.Context) ([]*model.Event, error)
}

// EventListCache receives the freshly loaded list.
type EventListCache interface {
	SetAll(ctx context.Context, events []*model.Event) error
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	// setup signal handlers
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt)
	go func() {
		<-signalCh
		cancel()
	}()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Printf("error creating the logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	dbConnStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("POSTGRES_HOST"),
		os.Getenv("POSTGRES_PORT"),
		os.Getenv("POSTGRES_DB"),
	)

	db := postgres.NewDB(dbConnStr)
	if err := db.Open(ctx); err != nil {
		logger.Fatal("cannot open db", zap.Error(err))
	}
	defer db.Close()

	amqpConnStr := fmt.Sprintf(
		"amqp://%s:%s@%s:%s",
		os.Getenv("AMQP_USER"),
		os.Getenv("AMQP_PASSWORD"),
		os.Getenv("AMQP_HOST"),
		os.Getenv("AMQP_PORT"),
	)
	amqpConn, err := amqp.Dial(amqpConnStr)
	if err != nil {
		logger.Fatal("error opening rabbitmq connection", zap.Error(err))
	}
	defer amqpConn.Close()
	logger.Info("opened rabbitmq connection")

	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT")),
	})
	defer redisClient.Close()
	logger.Info("opened redis connection")

	// Reads go straight to postgres here; the worker exists to refill the
	// cache, not to read through it.
	eventService := &postgres.EventService{DB: db, Logger: logger}

	consumer := NewCacheWarmConsumer(
		amqpConn,
		eventService,
		eventRedis.NewEventListStorage(redisClient),
		logger,
	)

	go func() {
		logger.Info("starting cache warm consumer")
		err := consumer.StartConsumer("events", "event.*", "warm_event_list_cache")
		if err != nil {
			logger.Error("error whilst running consumer", zap.Error(err))
			cancel()
		}
	}()

	// wait for termination
	<-ctx.Done()
}

// CacheWarmConsumer listens for event lifecycle messages and rebuilds the
// cached event list so the next read after a mutation is already warm.
type CacheWarmConsumer struct {
	conn   *amqp.Connection
	source EventSource
	cache  EventListCache
	logger *zap.Logger
}

func NewCacheWarmConsumer(
	conn *amqp.Connection,
	source EventSource,
	cache EventListCache,
	logger *zap.Logger,
) *CacheWarmConsumer {
	return &CacheWarmConsumer{
		conn:   conn,
		source: source,
		cache:  cache,
		logger: logger,
	}
}

func (c *CacheWarmConsumer) StartConsumer(exchangeName, routingKey, queueName string) error {
	ch, err := c.createChannel(exchangeName, routingKey, queueName)
	if err != nil {
		return errors.Wrap(err, "error creating channel")
	}
	defer ch.Close()

	messages, err := ch.Consume(queueName, "", true, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "error whilst consuming messages")
	}

	c.logger.Info("starting workers")
	go c.worker(messages)

	chanErr := <-ch.NotifyClose(make(chan *amqp.Error))

	c.logger.Info("channel notified to close")

	return chanErr
}

// createChannel creates a channel from the amqp connection
// and creates all of the necessary exchanges, queues, and bindings
func (c *CacheWarmConsumer) createChannel(
	exchangeName, routingKey, queueName string,
) (*amqp.Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "error creating amqp channel")
	}

	err = ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil)
	if err != nil {
		return nil, errors.Wrap(err, "error creating the exchange")
	}

	queue, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return nil, errors.Wrap(err, "error creating the queue")
	}

	err = ch.QueueBind(queue.Name, routingKey, exchangeName, false, nil)
	if err != nil {
		return nil, errors.Wrap(err, "error binding queue to exchange")
	}

	err = ch.Qos(1, 0, false)
	if err != nil {
		return nil, errors.Wrap(err, "error configuring prefetch")
	}

	return ch, nil
}

func (c *CacheWarmConsumer) worker(messages <-chan amqp.Delivery) {
	for delivery := range messages {
		ctx := context.Background()

		c.logger.Info("received event lifecycle message", zap.String("routingKey", delivery.RoutingKey))

		events, err := c.source.FindEvents(ctx)
		if err != nil {
			c.logger.Error("error loading events for cache warm", zap.Error(err))
			continue
		}

		if err := c.cache.SetAll(ctx, events); err != nil {
			c.logger.Error("error warming event list cache", zap.Error(err))
			continue
		}

		c.logger.Info("event list cache warmed", zap.Int("events", len(events)))
	}
}
