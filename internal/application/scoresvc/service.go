package scoresvc

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pulsemsp/pulse/internal/domain/entities"
	"github.com/pulsemsp/pulse/internal/domain/scoring"
)

// Service computes score bundles from a client's stored snapshot. The three
// calculators are pure; this layer owns snapshot loading, parallelism and
// the cache.
type Service struct {
	Store    entities.Store
	Cache    scoring.Cache
	CacheTTL time.Duration
	Log      *logrus.Logger
	Clock    Clock
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Scores returns the bundle for one client, from cache when fresh. A cache
// failure is logged and treated as a miss; scores are always recomputable.
func (s *Service) Scores(ctx context.Context, tenant string, clientID entities.ClientID) (*scoring.Bundle, error) {
	if s.Cache != nil {
		b, ok, err := s.Cache.Get(ctx, tenant, clientID)
		if err != nil {
			s.Log.WithError(err).WithField("client_id", clientID).Warn("score cache read failed")
		} else if ok {
			return b, nil
		}
	}

	bundle, err := s.Compute(ctx, tenant, clientID)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, tenant, clientID, bundle, s.CacheTTL); err != nil {
			s.Log.WithError(err).WithField("client_id", clientID).Warn("score cache write failed")
		}
	}
	return bundle, nil
}

// Compute loads one consistent snapshot and runs the three calculators in
// parallel, bypassing the cache.
func (s *Service) Compute(ctx context.Context, tenant string, clientID entities.ClientID) (*scoring.Bundle, error) {
	data, err := s.Store.ClientData(ctx, tenant, clientID)
	if err != nil {
		return nil, err
	}
	return s.ComputeFromData(data, clientID), nil
}

// ComputeFromData runs the three calculators over an already loaded
// snapshot. Used by the report pipeline, which needs the snapshot itself
// for narrative input and citation validation.
func (s *Service) ComputeFromData(data *entities.ClientData, clientID entities.ClientID) *scoring.Bundle {
	now := s.Clock.Now()
	bundle := &scoring.Bundle{ClientID: clientID, ComputedAt: now}

	var g errgroup.Group
	g.Go(func() error {
		bundle.Standards = scoring.ComputeStandards(data)
		return nil
	})
	g.Go(func() error {
		bundle.Risk = scoring.ComputeRisk(data)
		return nil
	})
	g.Go(func() error {
		bundle.Experience = scoring.ComputeExperience(data, now)
		return nil
	})
	_ = g.Wait()
	return bundle
}
