package identity

import (
	"errors"
	"fmt"

	"Agora/internal/core/networks"
	"Agora/internal/substrate/address"
)

// Source names one of the identity data sources
type Source string

const (
	SourceChainRegistry Source = "chain-registry"
	SourceFederatedName Source = "federated-name"
	SourceProfile       Source = "offchain-profile"
	SourceDelegates     Source = "delegate-registry"
)

// ErrNotFound matches any NotFoundError via errors.Is
var ErrNotFound = errors.New("not found")

// NotFoundError is returned when a source has no record for an address.
// This is absence, not failure.
type NotFoundError struct {
	Source  Source
	Address string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: no record for %s", e.Source, e.Address)
}

// Is makes errors.Is(err, ErrNotFound) hold for every NotFoundError
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// TransportError is returned when a source endpoint is unreachable, times out,
// or answers with something that is neither a record nor a clean miss
type TransportError struct {
	Err     error
	Source  Source
	Address string
	Reason  string
}

func (e *TransportError) Error() string {
	if e.Address != "" {
		return fmt.Sprintf("%s transport error for %s: %s", e.Source, e.Address, e.Reason)
	}
	return fmt.Sprintf("%s transport error: %s", e.Source, e.Reason)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsNotFound checks if an error is a "not found" error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTransport checks if an error is a transport failure
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsInvalidAddress checks if an error rejects the caller's address input
func IsInvalidAddress(err error) bool {
	var ie *address.InvalidError
	return errors.As(err, &ie)
}

// IsUnknownNetwork checks if an error names an unregistered network
func IsUnknownNetwork(err error) bool {
	return errors.Is(err, networks.ErrUnknownNetwork)
}
