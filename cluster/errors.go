package cluster

import (
	"errors"
	"fmt"
	"strings"

	"metastore-cluster/address"
)

var (
	// ErrResolution matches a *ResolutionError with errors.Is.
	ErrResolution = errors.New("metastore addresses could not be resolved")
	// ErrConnection matches a *ConnectionError with errors.Is.
	ErrConnection = errors.New("metastore connection failed")
)

// ResolutionError means no candidate address was produced at all: every
// spec was a discovery URI whose lookup failed or came back empty.
type ResolutionError struct {
	Service string
	URIs    []string // failed discovery URIs, in configuration order
	Report  *Report
}

func newResolutionError(service string, report *Report) *ResolutionError {
	var uris []string
	for _, o := range report.ResolveFailures() {
		uris = append(uris, o.Spec.String())
	}
	return &ResolutionError{Service: service, URIs: uris, Report: report}
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("Failed to resolve %s addresses: [%s]", e.Service, strings.Join(e.URIs, ", "))
}

func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }

func (e *ResolutionError) Unwrap() error { return e.Report.Err() }

// ConnectionError means at least one candidate was tried and none connected.
// URIs lists the whole configured spec list so the message does not depend
// on which lookups succeeded or how fallbacks were shuffled.
type ConnectionError struct {
	Service string
	URIs    []string
	Report  *Report
}

func newConnectionError(service string, specs []address.Spec, report *Report) *ConnectionError {
	return &ConnectionError{Service: service, URIs: address.Strings(specs), Report: report}
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("Failed connecting to %s using any of the URI's: [%s]", e.Service, strings.Join(e.URIs, ", "))
}

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

func (e *ConnectionError) Unwrap() error { return e.Report.Err() }
