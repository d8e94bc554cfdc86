package cluster

import (
	"fmt"

	"go.uber.org/multierr"

	"metastore-cluster/address"
)

type OutcomeKind int

const (
	ResolveFailure OutcomeKind = iota
	ConnectFailure
)

func (k OutcomeKind) String() string {
	if k == ResolveFailure {
		return "resolve"
	}
	return "connect"
}

// Outcome is one failed step of an AcquireClient call. Addr is zero for
// resolve failures.
type Outcome struct {
	Kind      OutcomeKind
	SpecIndex int
	Spec      address.Spec
	Addr      address.HostPort
	Err       error
}

func (o Outcome) Error() string {
	if o.Kind == ResolveFailure {
		return fmt.Sprintf("resolve %s: %v", o.Spec, o.Err)
	}
	return fmt.Sprintf("connect %s (%s): %v", o.Addr, o.Spec, o.Err)
}

func (o Outcome) Unwrap() error { return o.Err }

// Report collects the failures of one AcquireClient call in the order they
// happened. It is never shared between calls.
type Report struct {
	outcomes []Outcome
}

func (r *Report) add(o Outcome) {
	r.outcomes = append(r.outcomes, o)
}

func (r *Report) Outcomes() []Outcome {
	return append([]Outcome(nil), r.outcomes...)
}

func (r *Report) ResolveFailures() []Outcome { return r.filter(ResolveFailure) }

func (r *Report) ConnectFailures() []Outcome { return r.filter(ConnectFailure) }

func (r *Report) filter(kind OutcomeKind) []Outcome {
	var out []Outcome
	for _, o := range r.outcomes {
		if o.Kind == kind {
			out = append(out, o)
		}
	}
	return out
}

// Err combines every recorded failure, or returns nil if there were none.
func (r *Report) Err() error {
	var err error
	for _, o := range r.outcomes {
		err = multierr.Append(err, o)
	}
	return err
}
