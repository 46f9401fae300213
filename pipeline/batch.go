package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"hpi-forecast/models"
	"hpi-forecast/utils"
)

// Factory builds a fresh Controller writing into artifactsDir.
type Factory func(artifactsDir string) (*Controller, error)

// BatchResult is the outcome of one region in a batch.
type BatchResult struct {
	Region string
	Result *models.RunResult
	Err    error
}

// Batch runs the same request shape for many regions. Every region gets its
// own Controller and artifacts sub-directory, so runs share no state.
type Batch struct {
	factory        Factory
	baseDir        string
	maxConcurrency int
	logger         *utils.Logger
}

// NewBatch creates a Batch that writes under baseDir using at most
// maxConcurrency concurrent runs.
func NewBatch(factory Factory, baseDir string, maxConcurrency int, logger *utils.Logger) *Batch {
	return &Batch{factory: factory, baseDir: baseDir, maxConcurrency: maxConcurrency, logger: logger}
}

// Run executes one pipeline run per distinct, non-blank region. Results are
// returned in first-seen order; a failing region does not stop the others.
func (b *Batch) Run(ctx context.Context, regions []string, propertyType string, months int) []BatchResult {
	set := utils.NewStringSet()
	for _, r := range regions {
		if r = strings.TrimSpace(r); r != "" {
			set.Add(r)
		}
	}
	unique := set.Values()

	dirs := make([]string, len(unique))
	used := utils.NewStringSet()
	for i, region := range unique {
		dirs[i] = filepath.Join(b.baseDir, uniqueSlug(region, used))
	}

	results := make([]BatchResult, len(unique))
	pool := utils.NewWorkerPool(b.maxConcurrency)

	for i, region := range unique {
		i, region := i, region
		pool.Submit(func() {
			results[i] = BatchResult{Region: region}

			ctrl, err := b.factory(dirs[i])
			if err != nil {
				results[i].Err = err
				return
			}
			res, err := ctrl.Run(ctx, Request{Region: region, PropertyType: propertyType, ForecastMonths: months})
			results[i].Result, results[i].Err = res, err
			if err != nil {
				b.logger.Error("[batch] %s failed: %v", region, err)
			}
		})
	}
	pool.Wait()

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	b.logger.Info("[batch] %d regions done, %d failed", len(results), failed)
	return results
}

// uniqueSlug returns the slug of region, or "region" when it has none,
// suffixed with -2, -3, ... until it is not yet in used.
func uniqueSlug(region string, used *utils.StringSet) string {
	base := Slug(region)
	if base == "" {
		base = "region"
	}
	slug := base
	for n := 2; !used.Add(slug); n++ {
		slug = fmt.Sprintf("%s-%d", base, n)
	}
	return slug
}

// Slug turns a region name into a directory-safe lowercase name.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
