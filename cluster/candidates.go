package cluster

import (
	"context"

	"go.uber.org/zap"

	"metastore-cluster/address"
)

// Candidate is one resolved address eligible for a connection attempt.
type Candidate struct {
	Addr      address.HostPort
	SpecIndex int // position of the spec it came from
	Spec      address.Spec
}

// Candidates expands the configured specs for a single attempt. Addresses
// from the primary spec keep their order and come first; addresses from all
// fallback specs are pooled and shuffled. Failed or empty lookups are
// recorded in the report and contribute nothing.
func (c *Cluster) Candidates(ctx context.Context) ([]Candidate, *Report) {
	report := &Report{}
	var primary, fallback []Candidate

	for i, spec := range c.specs {
		addrs := c.expand(ctx, i, spec, report)
		for _, addr := range addrs {
			cand := Candidate{Addr: addr, SpecIndex: i, Spec: spec}
			if i == 0 {
				primary = append(primary, cand)
			} else {
				fallback = append(fallback, cand)
			}
		}
	}

	c.shuffle(len(fallback), func(i, j int) {
		fallback[i], fallback[j] = fallback[j], fallback[i]
	})
	return append(primary, fallback...), report
}

func (c *Cluster) expand(ctx context.Context, index int, spec address.Spec, report *Report) []address.HostPort {
	if spec.Kind == address.Static {
		return []address.HostPort{spec.Addr}
	}

	addrs, err := c.resolver.Resolve(ctx, spec.Ref)
	if err == nil && len(addrs) == 0 {
		err = ErrNoInstances
	}
	if err != nil {
		report.add(Outcome{Kind: ResolveFailure, SpecIndex: index, Spec: spec, Err: err})
		c.log.Warn("metastore discovery failed", zap.String("uri", spec.String()), zap.Int("spec_index", index), zap.Error(err))
		return nil
	}

	c.log.Debug("metastore discovery resolved", zap.String("uri", spec.String()), zap.Int("instances", len(addrs)))
	return addrs
}
