package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// Catalog is the read-only exam/question source being cached.
type Catalog interface {
	GetExam(ctx context.Context, examID int64) (*model.Exam, error)
	ListExams(ctx context.Context) ([]model.Exam, error)
	GetQuestion(ctx context.Context, questionID int64) (*model.Question, error)
	ListQuestionsPage(ctx context.Context, examID int64, limit, offset int) ([]model.Question, error)
	CountQuestions(ctx context.Context, examID int64) (int, error)
}

// CatalogCache is a cache-aside Redis layer over a Catalog. Exam headers, question
// counts and the exam list are cached for ttl; questions always come from the source
// so correct indexes are never copied out of the database.
// Redis failures are logged and the source is used instead.
type CatalogCache struct {
	source Catalog
	rdb    *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewCatalogCache creates a new CatalogCache.
func NewCatalogCache(source Catalog, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *CatalogCache {
	return &CatalogCache{
		source: source,
		rdb:    rdb,
		ttl:    ttl,
		log:    log.With().Str("component", "catalog_cache").Logger(),
	}
}

// GetExam returns the exam header, from cache when present.
func (c *CatalogCache) GetExam(ctx context.Context, examID int64) (*model.Exam, error) {
	key := config.CacheKey.ExamKey(examID)
	var exam model.Exam
	if c.getJSON(ctx, key, &exam) {
		return &exam, nil
	}

	e, err := c.source.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	c.setJSON(ctx, key, e)
	return e, nil
}

// ListExams returns every exam, from cache when present.
func (c *CatalogCache) ListExams(ctx context.Context) ([]model.Exam, error) {
	key := config.CacheKey.ExamListKey()
	var exams []model.Exam
	if c.getJSON(ctx, key, &exams) {
		return exams, nil
	}

	exams, err := c.source.ListExams(ctx)
	if err != nil {
		return nil, err
	}
	c.setJSON(ctx, key, exams)
	return exams, nil
}

// CountQuestions returns the exam's question count, from cache when present.
func (c *CatalogCache) CountQuestions(ctx context.Context, examID int64) (int, error) {
	key := config.CacheKey.ExamQuestionCountKey(examID)
	raw, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		if n, convErr := strconv.Atoi(raw); convErr == nil {
			return n, nil
		}
		c.log.Warn().Str("key", key).Str("value", raw).Msg("Discarding malformed cached count")
	case !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Str("key", key).Msg("Cache read failed, using database")
	}

	n, err := c.source.CountQuestions(ctx, examID)
	if err != nil {
		return 0, err
	}
	if err := c.rdb.Set(ctx, key, n, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
	return n, nil
}

// GetQuestion passes through to the source.
func (c *CatalogCache) GetQuestion(ctx context.Context, questionID int64) (*model.Question, error) {
	return c.source.GetQuestion(ctx, questionID)
}

// ListQuestionsPage passes through to the source.
func (c *CatalogCache) ListQuestionsPage(ctx context.Context, examID int64, limit, offset int) ([]model.Question, error) {
	return c.source.ListQuestionsPage(ctx, examID, limit, offset)
}

// Invalidate drops every cached entry for an exam, plus the exam list.
func (c *CatalogCache) Invalidate(ctx context.Context, examID int64) error {
	return c.rdb.Del(ctx,
		config.CacheKey.ExamKey(examID),
		config.CacheKey.ExamQuestionCountKey(examID),
		config.CacheKey.ExamListKey(),
	).Err()
}

// Prewarm loads the exam list plus every exam header and count into Redis.
// Exams that fail are logged and skipped.
func (c *CatalogCache) Prewarm(ctx context.Context) error {
	exams, err := c.source.ListExams(ctx)
	if err != nil {
		return err
	}
	if len(exams) == 0 {
		c.log.Info().Msg("No exams to prewarm")
		return nil
	}

	pipe := c.rdb.Pipeline()
	for i := range exams {
		n, err := c.source.CountQuestions(ctx, exams[i].ID)
		if err != nil {
			c.log.Warn().Err(err).Int64("exam_id", exams[i].ID).Msg("Failed to count questions, skipping")
			continue
		}
		data, err := json.Marshal(&exams[i])
		if err != nil {
			return err
		}
		pipe.Set(ctx, config.CacheKey.ExamKey(exams[i].ID), data, c.ttl)
		pipe.Set(ctx, config.CacheKey.ExamQuestionCountKey(exams[i].ID), n, c.ttl)
	}
	list, err := json.Marshal(exams)
	if err != nil {
		return err
	}
	pipe.Set(ctx, config.CacheKey.ExamListKey(), list, c.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	c.log.Info().Int("exams", len(exams)).Msg("Catalog cache prewarmed")
	return nil
}

func (c *CatalogCache) getJSON(ctx context.Context, key string, dst any) bool {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("Cache read failed, using database")
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Discarding malformed cache entry")
		return false
	}
	return true
}

func (c *CatalogCache) setJSON(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache encode failed")
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}
