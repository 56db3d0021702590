package domain

import (
	"errors"
	"math/rand"
)

var (
	// ErrNoInstance is returned when no candidate instance is left after filtering.
	ErrNoInstance = errors.New("no instance available")

	// ErrNotFound is returned by stores when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
)

// SelectionInput gathers everything the selector needs for one request.
type SelectionInput struct {
	Service *Service

	// InstanceID is the optional caller override (instance_id parameter).
	InstanceID string

	// GatewayLocality is the locality of the gateway handling the request.
	GatewayLocality Locality

	// DeploymentTestMode is the deployment-wide test flag.
	DeploymentTestMode bool
}

// InstanceSelector picks the backend instance a request is forwarded to.
// It is re-run on every request; nothing is pinned.
type InstanceSelector struct {
	// intn returns a uniform integer in [0, n).
	intn func(n int) int
}

// NewInstanceSelector creates a selector drawing from math/rand/v2.
func NewInstanceSelector() *InstanceSelector {
	return &InstanceSelector{intn: rand.Intn}
}

// NewInstanceSelectorWithRand creates a selector with a custom random source.
func NewInstanceSelectorWithRand(intn func(n int) int) *InstanceSelector {
	if intn == nil {
		intn = rand.Intn
	}
	return &InstanceSelector{intn: intn}
}

// Select returns the instance to forward to.
//
// Only running && active instances are ever returned. An explicit InstanceID
// wins when it names an eligible instance; otherwise a local gateway prefers
// local instances, and a test-mode service on a test deployment is restricted
// to local instances. The final pick is uniform among the candidates.
func (s *InstanceSelector) Select(in SelectionInput) (Instance, error) {
	eligible := in.Service.EligibleInstances()
	if len(eligible) == 0 {
		return Instance{}, ErrNoInstance
	}

	if in.InstanceID != "" {
		for _, inst := range eligible {
			if inst.ID == in.InstanceID {
				return inst, nil
			}
		}
	}

	var candidates []Instance
	switch {
	case in.GatewayLocality == LocalityLocal:
		candidates = filterLocal(eligible)
		if len(candidates) == 0 {
			candidates = eligible
		}
	case in.Service.TestMode && in.DeploymentTestMode:
		candidates = filterLocal(eligible)
	default:
		candidates = eligible
	}

	if len(candidates) == 0 {
		return Instance{}, ErrNoInstance
	}
	return candidates[s.intn(len(candidates))], nil
}

func filterLocal(instances []Instance) []Instance {
	local := make([]Instance, 0, len(instances))
	for _, inst := range instances {
		if inst.IsLocal() {
			local = append(local, inst)
		}
	}
	return local
}
