package underwriting

import (
	"context"
	"math/rand/v2"
	"sync"
)

// RiskGate is the last gate before approval. It may route an application that
// passed every rule to a human reviewer.
type RiskGate interface {
	RequiresManualReview(ctx context.Context, applicant ApplicantSnapshot, req RequestDetails, d Decision) bool
}

// GateFunc adapts a function to a RiskGate.
type GateFunc func(ctx context.Context, applicant ApplicantSnapshot, req RequestDetails, d Decision) bool

func (f GateFunc) RequiresManualReview(ctx context.Context, applicant ApplicantSnapshot, req RequestDetails, d Decision) bool {
	return f(ctx, applicant, req, d)
}

// NoReview approves everything that passed the rules.
type NoReview struct{}

func (NoReview) RequiresManualReview(context.Context, ApplicantSnapshot, RequestDetails, Decision) bool {
	return false
}

// SampledReview sends a fixed fraction of otherwise-approved applications to
// manual review.
type SampledReview struct {
	mu   sync.Mutex
	rate float64
	rnd  *rand.Rand
}

// NewSampledReview samples with the given rate in [0, 1]. A zero seed picks a
// random one.
func NewSampledReview(rate float64, seed uint64) *SampledReview {
	if seed == 0 {
		seed = rand.Uint64()
	}

	return &SampledReview{
		rate: min(max(rate, 0), 1),
		rnd:  rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}

func (s *SampledReview) RequiresManualReview(context.Context, ApplicantSnapshot, RequestDetails, Decision) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rnd.Float64() < s.rate
}
