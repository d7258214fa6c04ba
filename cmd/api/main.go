package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/gdg-paro/eventsync/gemini"
	"github.com/gdg-paro/eventsync/postgres"
	"github.com/gdg-paro/eventsync/rabbitmq"
	"github.com/gdg-paro/eventsync/recommender"
	eventRedis "github.com/gdg-paro/eventsync/redis"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Printf("error creating the logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	if geminiAPIKey == "" {
		logger.Fatal("GEMINI_API_KEY must be set")
	}

	dbConnStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("POSTGRES_HOST"),
		os.Getenv("POSTGRES_PORT"),
		os.Getenv("POSTGRES_DB"),
	)

	db := postgres.NewDB(dbConnStr)
	if err := db.Open(context.Background()); err != nil {
		logger.Fatal("cannot open db", zap.Error(err))
	}
	defer db.Close()
	logger.Info("opened postgres connection")

	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT")),
	})
	defer redisClient.Close()
	logger.Info("opened redis connection")

	amqpConnStr := fmt.Sprintf(
		"amqp://%s:%s@%s:%s",
		os.Getenv("AMQP_USER"),
		os.Getenv("AMQP_PASSWORD"),
		os.Getenv("AMQP_HOST"),
		os.Getenv("AMQP_PORT"),
	)

	producer := rabbitmq.NewProducer(amqpConnStr)
	if err := producer.Open(); err != nil {
		logger.Fatal("cannot open rabbitmq connection", zap.Error(err))
	}
	defer producer.Close()
	logger.Info("opened rabbitmq connection")

	eventService := &postgres.EventService{
		DB:              db,
		EventsPublisher: producer,
		Validator:       validator.New(),
		Cache:           eventRedis.NewEventListStorage(redisClient),
		Logger:          logger,
	}

	oracle := gemini.NewClient(logger, gemini.Config{
		APIKey: geminiAPIKey,
		Model:  os.Getenv("GEMINI_MODEL"),
	})

	server := &Server{
		events:      eventService,
		recommender: recommender.New(eventService, oracle, logger),
		logger:      logger,
	}

	r := gin.Default()

	r.POST("/events", server.createEvent)
	r.GET("/events", server.listEvents)
	r.GET("/events/:eventId", server.findEvent)
	r.PATCH("/events/:eventId", server.updateEvent)
	r.DELETE("/events/:eventId", server.deleteEvent)
	r.POST("/recommendations", server.recommend)

	r.Run()
}
