package pipeline

import (
	"context"
	"time"

	"brandguard/internal/domain"
	"brandguard/internal/infra"
	"brandguard/internal/providers/image"
)

// generationAttempts is the total model-call budget per generation stage run.
// A different budget should keep the backoff schedule at base 1, factor 2,
// count attempts-1.
const generationAttempts = 3

// Sleeper abstracts backoff waits so tests can observe the schedule without
// real delays.
type Sleeper func(time.Duration)

// GenerationStage invokes the generative model with bounded retry and
// exponential backoff. Any model-call error counts toward the attempt budget
// uniformly; there is no error-type-based early exit.
type GenerationStage struct {
	generator   image.Generator
	attempts    int
	backoffUnit time.Duration
	timeout     time.Duration
	sleep       Sleeper
	logger      infra.Logger
}

// NewGenerationStage wires the stage. backoffUnit is the base wait between
// attempts: the schedule is [1, 2] units for the default 3-attempt budget,
// with no wait after the final attempt.
func NewGenerationStage(generator image.Generator, backoffUnit, timeout time.Duration, logger infra.Logger) *GenerationStage {
	if backoffUnit <= 0 {
		backoffUnit = time.Second
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GenerationStage{
		generator:   generator,
		attempts:    generationAttempts,
		backoffUnit: backoffUnit,
		timeout:     timeout,
		sleep:       time.Sleep,
		logger:      logger,
	}
}

// WithSleeper replaces the backoff sleeper, for tests.
func (s *GenerationStage) WithSleeper(sleep Sleeper) *GenerationStage {
	s.sleep = sleep
	return s
}

// Run produces one image for the prompt, retrying up to the attempt budget.
// On success it returns immediately with no further waiting. On exhaustion it
// returns a GenerationError naming the number of attempts made. The caller
// records the job's attempt count exactly once per Run, regardless of how
// many internal retries occurred.
func (s *GenerationStage) Run(ctx context.Context, jobID, prompt string, logoRasters [][]byte) (*image.Asset, error) {
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		asset, err := s.generator.Generate(callCtx, image.GenerateRequest{
			Prompt:     prompt,
			LogoImages: logoRasters,
			RequestID:  jobID,
		})
		cancel()
		if err == nil {
			s.logger.Info().
				Str("job_id", jobID).
				Int("attempt", attempt).
				Msg("pipeline: generation succeeded")
			return asset, nil
		}

		lastErr = err
		s.logger.Warn().
			Err(err).
			Str("job_id", jobID).
			Int("attempt", attempt).
			Msg("pipeline: generation attempt failed")

		if attempt < s.attempts {
			s.sleep(s.backoffUnit << (attempt - 1))
		}
	}
	return nil, &domain.GenerationError{Attempts: s.attempts, Err: lastErr}
}
