package fixture

import (
	"context"
	"errors"
	"fmt"

	"github.com/backoffice/prdesk/internal/domain/identity"
	"github.com/backoffice/prdesk/internal/domain/pricing"
	"github.com/backoffice/prdesk/internal/domain/shared"
	"go.uber.org/zap"
)

// Demo accounts created by Seed. They share DemoPassword.
const (
	DemoSalesEmail    = "sales@prdesk.local"
	DemoAnalystEmail  = "analyst@prdesk.local"
	DemoAnalyst2Email = "analyst2@prdesk.local"
	DemoPassword      = "prdesk-demo"
)

// stages walks seeded requests through the lifecycle so every state is populated
var stages = []pricing.Status{
	pricing.StatusDraft,
	pricing.StatusUnderReview,
	pricing.StatusActive,
	pricing.StatusActionRequired,
	pricing.StatusClosed, // approved
	pricing.StatusUnderReview,
	pricing.StatusClosed, // rejected
}

// SeedResult reports what Seed created
type SeedResult struct {
	Users    []*identity.User
	Requests []*pricing.PricingRequest
}

// Seeder writes demo data through the domain repositories
type Seeder struct {
	users     identity.UserRepository
	requests  pricing.Repository
	generator *Generator
	logger    *zap.Logger
}

// NewSeeder creates a seeder
func NewSeeder(users identity.UserRepository, requests pricing.Repository, generator *Generator, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{users: users, requests: requests, generator: generator, logger: logger}
}

// Seed creates the demo accounts (reusing existing ones) and count pricing
// requests spread over every lifecycle state
func (s *Seeder) Seed(ctx context.Context, count int) (*SeedResult, error) {
	sales, err := s.ensureUser(ctx, "Demo Sales", DemoSalesEmail, identity.RoleSalesExecutive)
	if err != nil {
		return nil, err
	}
	analyst, err := s.ensureUser(ctx, "Demo Analyst", DemoAnalystEmail, identity.RolePricingAnalyst)
	if err != nil {
		return nil, err
	}
	analyst2, err := s.ensureUser(ctx, "Demo Analyst Two", DemoAnalyst2Email, identity.RolePricingAnalyst)
	if err != nil {
		return nil, err
	}
	result := &SeedResult{Users: []*identity.User{sales, analyst, analyst2}}

	for i := 0; i < count; i++ {
		stage := stages[i%len(stages)]
		approve := i%len(stages) == 4
		pr, err := s.build(sales.Actor(), analyst.Actor(), stage, approve)
		if err != nil {
			return nil, fmt.Errorf("build demo request %d: %w", i, err)
		}
		if err := s.requests.Create(ctx, pr); err != nil {
			return nil, fmt.Errorf("store demo request %d: %w", i, err)
		}
		result.Requests = append(result.Requests, pr)
	}

	s.logger.Info("Seeded demo data",
		zap.Int("users", len(result.Users)),
		zap.Int("pricing_requests", len(result.Requests)),
	)
	return result, nil
}

func (s *Seeder) ensureUser(ctx context.Context, name, email string, role identity.Role) (*identity.User, error) {
	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	u, err := identity.NewUser(name, email, DemoPassword, role)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create demo user %s: %w", email, err)
	}
	return u, nil
}

// build drives a fresh request to the target state through the workflow
func (s *Seeder) build(sales, analyst identity.Actor, target pricing.Status, approve bool) (*pricing.PricingRequest, error) {
	pr, err := pricing.NewPricingRequest(sales, s.generator.Details())
	if err != nil {
		return nil, err
	}
	if target == pricing.StatusDraft {
		return pr, nil
	}
	if err := pr.Submit(sales); err != nil {
		return nil, err
	}
	if target == pricing.StatusUnderReview {
		return pr, nil
	}
	if err := pr.Assign(analyst); err != nil {
		return nil, err
	}
	switch target {
	case pricing.StatusActive:
		return pr, nil
	case pricing.StatusActionRequired:
		return pr, pr.RequestAction(analyst, s.generator.Comment())
	}
	if approve {
		err = pr.Approve(analyst, s.generator.Comment())
	} else {
		err = pr.Reject(analyst, s.generator.Comment())
	}
	if err != nil {
		return nil, err
	}
	return pr, pr.Close()
}
