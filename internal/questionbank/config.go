package questionbank

import (
	"math/rand/v2"
	"time"
)

// Config controls generation and the bank's locking behavior.
type Config struct {
	// Validators run in order on every generated batch; the first
	// violation rejects the batch.
	Validators []Validator

	// MaxTokens is the token budget for one batch.
	MaxTokens int

	// Temperature controls LLM output randomness (0.0-1.0).
	Temperature float64

	// MaxAttempts bounds fresh generations after a schema violation.
	MaxAttempts int

	// ClaimTTL is how long a generation claim is honored before another
	// replica may take it over.
	ClaimTTL time.Duration

	// GenerationWait is how long a caller waits for another replica's
	// generation before giving up with ErrGenerationInProgress.
	GenerationWait time.Duration

	// PollInterval is the wait between checks while another replica
	// generates.
	PollInterval time.Duration

	// Shuffle permutes n elements. Defaults to math/rand/v2.Shuffle.
	Shuffle func(n int, swap func(i, j int))
}

// DefaultConfig returns a Config with the standard validator chain.
func DefaultConfig() Config {
	return Config{
		Validators: []Validator{
			&StructuralValidator{},
			&DuplicateValidator{},
		},
		MaxTokens:      4096,
		Temperature:    0.6,
		MaxAttempts:    2,
		ClaimTTL:       2 * time.Minute,
		GenerationWait: 90 * time.Second,
		PollInterval:   500 * time.Millisecond,
		Shuffle:        rand.Shuffle,
	}
}
