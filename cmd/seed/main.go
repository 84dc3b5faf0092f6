package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-assessment/internal/cache"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/database"
	"github.com/stemsi/exstem-assessment/internal/logger"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
)

type seedQuestion struct {
	subject model.Subject
	content string
	options []string
	correct int
}

var placementQuestions = []seedQuestion{
	{model.SubjectMath, "What is 12 x 12?", []string{"124", "144", "154", "164"}, 1},
	{model.SubjectMath, "Solve for x: 2x + 6 = 14", []string{"3", "4", "5", "8"}, 1},
	{model.SubjectMath, "What is 15% of 200?", []string{"15", "20", "30", "45"}, 2},
	{model.SubjectMath, "Which number is prime?", []string{"21", "27", "29", "33"}, 2},
	{model.SubjectMath, "What is the square root of 81?", []string{"7", "8", "9", "10"}, 2},
	{model.SubjectEnglish, "Choose the past tense of \"go\".", []string{"goed", "went", "gone", "going"}, 1},
	{model.SubjectEnglish, "Pick the plural of \"mouse\".", []string{"mouses", "mice", "meese", "mousen"}, 1},
	{model.SubjectEnglish, "She ___ to school every day.", []string{"go", "goes", "going", "gone"}, 1},
	{model.SubjectEnglish, "Choose the synonym of \"rapid\".", []string{"slow", "quick", "late", "calm"}, 1},
	{model.SubjectEnglish, "Which word is an adjective?", []string{"run", "happily", "blue", "quickly"}, 2},
}

var students = [][2]string{
	{"Budi", "Santoso"}, {"Siti", "Aminah"}, {"Andi", "Pratama"}, {"Rina", "Wati"}, {"Joko", "Susilo"},
	{"Ayu", "Lestari"}, {"Dodi", "Kusuma"}, {"Eka", "Putri"}, {"Fahri", "Hamzah"}, {"Gita", "Savitri"},
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	for i, q := range placementQuestions {
		check := model.Question{Options: q.options, CorrectIndex: q.correct}
		if err := check.Validate(); err != nil {
			log.Fatal().Err(err).Int("question", i+1).Msg("Invalid seed question")
		}
	}

	fmt.Println("=== Seeding placement exam and students ===")

	var examID int64
	err = pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO exams (title, time_limit_seconds) VALUES ($1, $2) RETURNING id`,
			"Placement Test", 30*60,
		).Scan(&examID); err != nil {
			return fmt.Errorf("insert exam: %w", err)
		}

		for i, q := range placementQuestions {
			options, err := json.Marshal(q.options)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO questions (exam_id, position, subject, content, options, correct_index)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				examID, i+1, q.subject.String(), q.content, options, q.correct,
			); err != nil {
				return fmt.Errorf("insert question %d: %w", i+1, err)
			}
		}
		fmt.Printf("Created exam %d with %d questions\n", examID, len(placementQuestions))

		for _, name := range students {
			id := uuid.New()
			if _, err := tx.Exec(ctx,
				`INSERT INTO students (id, first_name, last_name) VALUES ($1, $2, $3)`,
				id, name[0], name[1],
			); err != nil {
				return fmt.Errorf("insert student %s: %w", name[0], err)
			}
			fmt.Printf("Student %s %s: %s\n", name[0], name[1], id)
		}
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Seed failed")
	}

	// A running server may hold the exam list in Redis; drop it so the new exam shows up.
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedisClient(ctx, cfg, log)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, skipping cache invalidation")
		} else {
			defer rdb.Close()
			catalog := cache.NewCatalogCache(repository.NewCatalog(pool), rdb, cfg.CatalogCacheTTL, log)
			if err := catalog.Invalidate(ctx, examID); err != nil {
				log.Warn().Err(err).Msg("Failed to invalidate catalog cache")
			}
		}
	}

	fmt.Println("\nSeed completed!")
}
