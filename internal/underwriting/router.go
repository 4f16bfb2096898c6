package underwriting

import "context"

// Router dispatches to a partner-specific provider, falling back to a default
// one for partners without their own integration.
type Router struct {
	fallback Provider
	partners map[string]Provider
}

func NewRouter(fallback Provider) *Router {
	return &Router{fallback: fallback, partners: make(map[string]Provider)}
}

// Route registers p for partner. It is not safe to call once the router is in use.
func (r *Router) Route(partner string, p Provider) *Router {
	r.partners[partner] = p
	return r
}

func (r *Router) Evaluate(ctx context.Context, applicant ApplicantSnapshot, req RequestDetails) (Decision, error) {
	if p, ok := r.partners[req.Partner]; ok {
		return p.Evaluate(ctx, applicant, req)
	}

	return r.fallback.Evaluate(ctx, applicant, req)
}
