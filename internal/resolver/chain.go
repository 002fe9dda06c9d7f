// ABOUTME: Startup priority chain for the location resolver
// ABOUTME: Ordered steps tried until one yields a usable location

package resolver

import (
	"context"
	"errors"

	"github.com/harper/skycast/internal/events"
	"github.com/harper/skycast/internal/models"
)

// errSkip marks a step that has nothing to offer.
var errSkip = errors.New("nothing to resolve")

// Step is one entry of the startup chain.
type Step struct {
	Source  models.Source
	Resolve func(ctx context.Context) (models.Candidate, error)
}

// Chain returns the sources of the startup chain in the order they are tried.
func (r *Resolver) Chain() []models.Source {
	out := make([]models.Source, len(r.chain))
	for i, s := range r.chain {
		out[i] = s.Source
	}
	return out
}

func (r *Resolver) defaultChain() []Step {
	return []Step{
		{Source: models.SourceDefault, Resolve: r.fromDefault},
		{Source: models.SourceRecent, Resolve: r.fromLast},
		{Source: models.SourceSaved, Resolve: r.fromSaved},
		{Source: models.SourceGeolocation, Resolve: r.fromDevice},
		{Source: models.SourceIPLocation, Resolve: r.fromIP},
		{Source: models.SourceFallback, Resolve: r.fromFallback},
	}
}

func (r *Resolver) fromDefault(context.Context) (models.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.def == nil {
		return models.Candidate{}, errSkip
	}
	return r.def.Candidate, nil
}

func (r *Resolver) fromLast(context.Context) (models.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return models.Candidate{}, errSkip
	}
	return *r.last, nil
}

func (r *Resolver) fromSaved(context.Context) (models.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saved) == 0 {
		return models.Candidate{}, errSkip
	}
	return r.saved[0].Candidate, nil
}

func (r *Resolver) fromDevice(ctx context.Context) (models.Candidate, error) {
	if r.device == nil {
		return models.Candidate{}, errSkip
	}
	ctx, cancel := context.WithTimeout(ctx, r.deviceTimeout)
	defer cancel()

	pos, err := r.device.CurrentPosition(ctx)
	if err != nil {
		return models.Candidate{}, err
	}
	return models.Candidate{Latitude: pos.Latitude, Longitude: pos.Longitude}, nil
}

func (r *Resolver) fromIP(ctx context.Context) (models.Candidate, error) {
	if r.ip == nil {
		return models.Candidate{}, errSkip
	}
	loc, err := r.ip.Lookup(ctx)
	if err != nil {
		return models.Candidate{}, err
	}
	return loc.Candidate(), nil
}

func (r *Resolver) fromFallback(context.Context) (models.Candidate, error) {
	return r.fallback, nil
}

// runChain tries each step until one sets the active location, then records
// the result and emits initialization-complete. done is closed on return.
func (r *Resolver) runChain(done chan struct{}) {
	defer close(done)

	var (
		result   models.ActiveLocation
		resolved bool
	)
	for _, step := range r.chain {
		candidate, err := step.Resolve(r.ctx)
		if err != nil {
			if errors.Is(err, errSkip) {
				r.logger.Debug("chain step skipped", "source", step.Source)
			} else {
				r.logger.Info("chain step failed", "source", step.Source, "err", err)
			}
			continue
		}
		active, err := r.setLocation(r.ctx, candidate, step.Source)
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return
			}
			r.logger.Warn("chain step rejected", "source", step.Source, "err", err)
			continue
		}
		r.logger.Debug("chain resolved", "source", step.Source)
		result, resolved = active, true
		break
	}

	r.mu.Lock()
	if r.closed || !resolved {
		r.mu.Unlock()
		return
	}
	r.ready = true
	r.initResult = result
	r.mu.Unlock()

	r.bus.Emit(events.Event{Kind: events.InitializationComplete, Location: &result})
}
