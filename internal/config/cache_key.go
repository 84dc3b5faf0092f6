package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamKey returns the cache key for an exam's catalog header (title, time limit).
func (r *CacheKeyStruct) ExamKey(examID int64) string {
	return fmt.Sprintf("exam:%d:header", examID)
}

// ExamQuestionCountKey returns the cache key for an exam's question count.
func (r *CacheKeyStruct) ExamQuestionCountKey(examID int64) string {
	return fmt.Sprintf("exam:%d:question_count", examID)
}

// ExamListKey returns the cache key for the student-facing exam list.
func (r *CacheKeyStruct) ExamListKey() string {
	return "exams:list"
}

// ExamMonitorChannel returns the Redis PubSub channel name for an exam's session events.
func (r *CacheKeyStruct) ExamMonitorChannel(examID int64) string {
	return fmt.Sprintf("exam:%d:monitor", examID)
}

var CacheKey = NewCacheKeyStruct()
