package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prepstack/testprep-service/internal/models"
	"github.com/prepstack/testprep-service/internal/validator"
)

func newGenerationFixture() (*fakeRepository, GenerationService) {
	repo := newFakeRepository()
	svc := NewGenerationService(repo, nil, testLogger(), testValidator())
	return repo, svc
}

func seedScopeBank(repo *fakeRepository, scope string, prefix string, n int) {
	for i := 0; i < n; i++ {
		repo.seedQuestion(fmt.Sprintf("%s-%d", prefix, i), models.SubjectMath, models.DifficultyMedium, scope)
	}
}

func TestGenerate_PrefersMostSpecificScope(t *testing.T) {
	repo, svc := newGenerationFixture()
	seedScopeBank(repo, "STATE:US-CA", "st", 5)
	seedScopeBank(repo, "COUNTRY:US", "co", 5)
	seedScopeBank(repo, "GLOBAL", "gl", 5)

	resp, err := svc.Generate(context.Background(), &GenerateQuestionsRequest{
		Subject:     models.SubjectMath,
		Difficulty:  models.DifficultyMedium,
		Count:       3,
		Country:     "US",
		StateRegion: "CA",
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if resp.Count != 3 {
		t.Fatalf("expected 3 questions, got %d", resp.Count)
	}
	for _, q := range resp.Questions {
		if q.LocaleScope != "STATE:US-CA" {
			t.Errorf("expected state-scoped question, got scope %s", q.LocaleScope)
		}
	}
}

func TestGenerate_FallsBackThroughHierarchy(t *testing.T) {
	repo, svc := newGenerationFixture()
	seedScopeBank(repo, "STATE:US-CA", "st", 5)
	seedScopeBank(repo, "COUNTRY:US", "co", 5)

	resp, err := svc.Generate(context.Background(), &GenerateQuestionsRequest{
		Subject:     models.SubjectMath,
		Difficulty:  models.DifficultyMedium,
		Count:       8,
		Country:     "US",
		StateRegion: "CA",
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if resp.Count != 8 {
		t.Fatalf("expected 8 questions, got %d", resp.Count)
	}

	byScope := map[string]int{}
	for _, q := range resp.Questions {
		byScope[q.LocaleScope]++
	}
	if byScope["STATE:US-CA"] != 5 {
		t.Errorf("expected all 5 state questions, got %d", byScope["STATE:US-CA"])
	}
	if byScope["COUNTRY:US"] != 3 {
		t.Errorf("expected 3 country questions, got %d", byScope["COUNTRY:US"])
	}
}

func TestGenerate_NoDuplicates(t *testing.T) {
	repo, svc := newGenerationFixture()
	seedScopeBank(repo, "STATE:US-CA", "st", 3)
	seedScopeBank(repo, "COUNTRY:US", "co", 3)
	seedScopeBank(repo, "GLOBAL", "gl", 3)

	resp, err := svc.Generate(context.Background(), &GenerateQuestionsRequest{
		Subject:     models.SubjectMath,
		Difficulty:  models.DifficultyMedium,
		Count:       9,
		Country:     "US",
		StateRegion: "CA",
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	seen := map[string]bool{}
	for _, q := range resp.Questions {
		if seen[q.ID] {
			t.Errorf("question %s returned twice", q.ID)
		}
		seen[q.ID] = true
	}
	if resp.Count != 9 {
		t.Errorf("expected 9 questions, got %d", resp.Count)
	}
}

func TestGenerate_RespectsExclusions(t *testing.T) {
	repo, svc := newGenerationFixture()
	seedScopeBank(repo, "GLOBAL", "gl", 5)

	resp, err := svc.Generate(context.Background(), &GenerateQuestionsRequest{
		Subject:            models.SubjectMath,
		Difficulty:         models.DifficultyMedium,
		Count:              5,
		ExcludeQuestionIDs: []string{"gl-0", "gl-1"},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if resp.Count != 3 {
		t.Fatalf("expected 3 questions after exclusions, got %d", resp.Count)
	}
	for _, q := range resp.Questions {
		if q.ID == "gl-0" || q.ID == "gl-1" {
			t.Errorf("excluded question %s was returned", q.ID)
		}
	}
}

func TestGenerate_UnderFilledBank(t *testing.T) {
	repo, svc := newGenerationFixture()
	seedScopeBank(repo, "GLOBAL", "gl", 2)

	resp, err := svc.Generate(context.Background(), &GenerateQuestionsRequest{
		Subject:    models.SubjectMath,
		Difficulty: models.DifficultyMedium,
		Count:      10,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if resp.Count != 2 {
		t.Errorf("expected 2 questions from a thin bank, got %d", resp.Count)
	}
	if resp.RequestedCount != 10 {
		t.Errorf("expected requested count 10, got %d", resp.RequestedCount)
	}
}

func TestGenerate_ZeroCount(t *testing.T) {
	repo, svc := newGenerationFixture()
	seedScopeBank(repo, "GLOBAL", "gl", 5)

	resp, err := svc.Generate(context.Background(), &GenerateQuestionsRequest{
		Subject:    models.SubjectMath,
		Difficulty: models.DifficultyMedium,
		Count:      0,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Count != 0 || len(resp.Questions) != 0 {
		t.Errorf("expected empty result for zero count, got %d", resp.Count)
	}
}

func TestGenerate_RejectsNegativeCount(t *testing.T) {
	repo, svc := newGenerationFixture()
	seedScopeBank(repo, "GLOBAL", "gl", 5)

	_, err := svc.Generate(context.Background(), &GenerateQuestionsRequest{
		Subject:    models.SubjectMath,
		Difficulty: models.DifficultyMedium,
		Count:      -3,
	})

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		t.Fatalf("expected validation error for negative count, got %v", err)
	}
}

func TestGenerate_SkipsInactiveQuestions(t *testing.T) {
	repo, svc := newGenerationFixture()
	seedScopeBank(repo, "GLOBAL", "gl", 3)
	repo.questions["gl-1"].IsActive = false

	resp, err := svc.Generate(context.Background(), &GenerateQuestionsRequest{
		Subject:    models.SubjectMath,
		Difficulty: models.DifficultyMedium,
		Count:      3,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if resp.Count != 2 {
		t.Fatalf("expected 2 active questions, got %d", resp.Count)
	}
	for _, q := range resp.Questions {
		if q.ID == "gl-1" {
			t.Errorf("inactive question was returned")
		}
	}
}

func TestSampleQuestions_PoolSmallerThanCount(t *testing.T) {
	pool := []*models.Question{{ID: "a"}, {ID: "b"}}
	got := sampleQuestions(pool, 5)
	if len(got) != 2 {
		t.Fatalf("expected whole pool, got %d", len(got))
	}
}

func TestSampleQuestions_DoesNotMutatePool(t *testing.T) {
	pool := make([]*models.Question, 10)
	for i := range pool {
		pool[i] = &models.Question{ID: fmt.Sprintf("q-%d", i)}
	}
	sampleQuestions(pool, 3)
	for i, q := range pool {
		if q.ID != fmt.Sprintf("q-%d", i) {
			t.Fatalf("pool order mutated at index %d", i)
		}
	}
}

func TestSampleQuestions_Unbiased(t *testing.T) {
	const (
		poolSize = 5
		draws    = 2
		trials   = 20000
	)
	pool := make([]*models.Question, poolSize)
	for i := range pool {
		pool[i] = &models.Question{ID: fmt.Sprintf("q-%d", i)}
	}

	counts := map[string]int{}
	for i := 0; i < trials; i++ {
		for _, q := range sampleQuestions(pool, draws) {
			counts[q.ID]++
		}
	}

	// Each question should be drawn draws/poolSize of the time. Allow a
	// generous 10% relative tolerance for randomness.
	expected := float64(trials*draws) / float64(poolSize)
	for id, n := range counts {
		ratio := float64(n) / expected
		if ratio < 0.9 || ratio > 1.1 {
			t.Errorf("question %s drawn %d times, expected about %.0f", id, n, expected)
		}
	}
	if len(counts) != poolSize {
		t.Errorf("some questions were never drawn: %d of %d seen", len(counts), poolSize)
	}
}
