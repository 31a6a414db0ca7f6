package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateQuestionCache invalidates all question-related caches
func InvalidateQuestionCache(ctx context.Context, cm *CacheManager, questionID string) {
	SafeDelete(ctx, cm.Question, fmt.Sprintf("id:%s", questionID))
	SafeInvalidatePattern(ctx, cm.Question, "list:*")
	SafeInvalidatePattern(ctx, cm.Question, "scoped:*")
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("question:%s:*", questionID))
}

// InvalidateAnalyticsCache invalidates the analytics caches for one question
func InvalidateAnalyticsCache(ctx context.Context, cm *CacheManager, questionID string) {
	SafeDelete(ctx, cm.Analytics, fmt.Sprintf("question:%s", questionID))
	SafeInvalidatePattern(ctx, cm.Analytics, "top:*")
}

// InvalidateStudentCache invalidates the caches for one student
func InvalidateStudentCache(ctx context.Context, cm *CacheManager, studentID string) {
	SafeDelete(ctx, cm.Student, fmt.Sprintf("id:%s", studentID))
	SafeInvalidatePattern(ctx, cm.Student, "list:*")
}
