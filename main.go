package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"organ-quiz-service/internal/cache"
	"organ-quiz-service/internal/event"
	"organ-quiz-service/internal/handlers"
	"organ-quiz-service/internal/imagegen"
	"organ-quiz-service/internal/quizfile"
	"organ-quiz-service/internal/registry"
	"organ-quiz-service/internal/service"
	"organ-quiz-service/internal/store"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}

	// Quiz data. A quiz that fails to load must not be served.
	quizFile := envOr("QUIZ_FILE", "QuizData_1.txt")
	records, err := quizfile.Load(quizFile)
	if err != nil {
		log.Fatalf("Failed to load quiz file: %v", err)
	}
	questions, err := store.Load(records)
	if err != nil {
		log.Fatalf("Failed to validate quiz data: %v", err)
	}
	holder := store.NewHolder(questions)
	log.Printf("Loaded %d questions from %s", questions.Len(), quizFile)

	// Image generation via Bedrock, deduplicated by the cache.
	imagesDir := envOr("IMAGES_DIR", "./static")
	client, err := imagegen.NewBedrockClient(
		context.Background(),
		envOr("AWS_REGION", "us-east-1"),
		os.Getenv("BEDROCK_MODEL_ID"),
		imagesDir,
		"/static",
	)
	if err != nil {
		log.Fatalf("Failed to set up image generation: %v", err)
	}
	images := cache.New(client)

	sessions := registry.New()
	quiz := service.NewQuiz(holder, images, sessions)

	// RabbitMQ event publisher
	rabbitURL := os.Getenv("RABBITMQ_URI")
	eventExchange := os.Getenv("RABBITMQ_EXCHANGE")
	var publisher *event.Publisher
	if rabbitURL != "" && eventExchange != "" {
		publisher, err = event.NewPublisher(rabbitURL, eventExchange)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()
	} else {
		log.Println("RabbitMQ not configured, quiz events will not be published")
	}

	// Idle-session sweep, driven here rather than by the registry.
	idleTimeout := durationOr("SESSION_IDLE_TIMEOUT", 30*time.Minute)
	go func() {
		ticker := time.NewTicker(idleTimeout / 10)
		defer ticker.Stop()
		for range ticker.C {
			if n := sessions.Sweep(idleTimeout); n > 0 {
				log.Printf("Swept %d idle sessions", n)
			}
		}
	}()

	// Optional image warm-up; failures stay retryable in the cache.
	if boolEnv("PREFETCH_IMAGES") {
		limit := int64(intOr("PREFETCH_CONCURRENCY", 3))
		go func() {
			if err := quiz.PrefetchImages(context.Background(), limit); err != nil {
				log.Printf("Image prefetch stopped: %v", err)
			}
		}()
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{envOr("CORS_ORIGIN", "http://localhost:3000")},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	quizHandler := handlers.NewQuizHandler(quiz, publisher)

	r.StaticFile("/", "./index.html")
	r.Static("/static", imagesDir)

	api := r.Group("/api")
	{
		api.POST("/session", quizHandler.CreateSession)
		api.GET("/session/:id/question", quizHandler.GetCurrentQuestion)
		api.POST("/session/:id/answer", quizHandler.SubmitAnswer)
		api.GET("/session/:id/score", quizHandler.GetScore)
	}

	r.Run(":" + envOr("PORT", "8080"))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func boolEnv(key string) bool {
	v := os.Getenv(key)
	return v == "1" || v == "true"
}
