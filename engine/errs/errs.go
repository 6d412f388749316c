// Package errs defines the closed error taxonomy surfaced at the engine's
// boundary (spec §6, §7). Sentinel errors are compared with errors.Is;
// errors that carry structured context embed a map for templated messages,
// produced by an external translation collaborator that this core never
// hard-codes human strings for.
package errs

import (
	"errors"
	"fmt"
)

// Precondition errors (spec §7 "surfaced to the caller unchanged").
var (
	ErrInvalidPoolId              = errors.New("offs: invalid pool id")
	ErrKeyNotFound                = errors.New("offs: key not found")
	ErrBlockAlreadyExists         = errors.New("offs: block already exists")
	ErrBlockSizeMismatch          = errors.New("offs: block size mismatch")
	ErrBlockPathAlreadyExists     = errors.New("offs: block path already exists")
	ErrBlockFileSizeMismatch      = errors.New("offs: block file size mismatch")
	ErrBlockValidationFailed      = errors.New("offs: block validation failed")
	ErrNoBlocksProvided           = errors.New("offs: no blocks provided")
	ErrNoWhitenersProvided        = errors.New("offs: no whiteners provided")
	ErrEmptyBlocksArray           = errors.New("offs: empty blocks array")
	ErrCannotDetermineLength      = errors.New("offs: cannot determine length")
	ErrCannotDetermineBlockSize   = errors.New("offs: cannot determine block size")
	ErrCannotDetermineMimeType    = errors.New("offs: cannot determine mime type")
	ErrCannotDetermineFileName    = errors.New("offs: cannot determine file name")
	ErrFilePathNotProvided        = errors.New("offs: file path not provided")
	ErrRecipientRequiredForEncryption = errors.New("offs: recipient required for encryption")
	ErrAlreadyInitialized         = errors.New("offs: already initialized")
	ErrUninitialized              = errors.New("offs: uninitialized")
	ErrBlockDirectoryCreationFailed = errors.New("offs: block directory creation failed")
	ErrPoolNotFound               = errors.New("offs: pool not found")
	ErrMalformedCbl               = errors.New("offs: malformed cbl")
)

// StoreError wraps a resource-layer failure (disk I/O, OS errors) with the
// originating OS error string attached, per spec §4.4 BlockDeletionFailed.
type StoreError struct {
	Op      string
	Context map[string]string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("offs: %s: %v (%v)", e.Op, e.Err, e.Context)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewBlockDeletionFailed builds the BlockDeletionFailed error with the OS
// error string attached in the context map, as required by spec §4.4.
func NewBlockDeletionFailed(path string, cause error) error {
	return &StoreError{
		Op:      "BlockDeletionFailed",
		Context: map[string]string{"path": path, "os_error": cause.Error()},
		Err:     cause,
	}
}

// IntegrityError reports a checksum mismatch during reconstruction (spec
// §4.9, §6 IntegrityViolation). Both expected and actual are carried as hex
// strings so the caller receives both without needing the checksum package.
type IntegrityError struct {
	ExpectedHex string
	ActualHex   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("offs: integrity violation: expected %s, got %s", e.ExpectedHex, e.ActualHex)
}

// NewIntegrityViolation constructs an IntegrityError.
func NewIntegrityViolation(expectedHex, actualHex string) error {
	return &IntegrityError{ExpectedHex: expectedHex, ActualHex: actualHex}
}

// PoolDeletionError reports that validatePoolDeletion found the target pool
// unsafe to delete (spec §4.3.1, §6 PoolDeletion{dependentPools,
// referencedBlocks}).
type PoolDeletionError struct {
	PoolId          string
	DependentPools  []string
	ReferencedBlocks []string
}

func (e *PoolDeletionError) Error() string {
	return fmt.Sprintf("offs: pool %q has dependents %v referencing %d block(s)",
		e.PoolId, e.DependentPools, len(e.ReferencedBlocks))
}

// KeyNotFoundDetail carries the pool/hex pair for a KeyNotFound failure
// (spec §4.3 "Fails with KeyNotFound{pool, hex}").
type KeyNotFoundDetail struct {
	PoolId string
	Hex    string
}

func (e *KeyNotFoundDetail) Error() string {
	return fmt.Sprintf("offs: key not found: pool=%q hex=%s", e.PoolId, e.Hex)
}

func (e *KeyNotFoundDetail) Unwrap() error { return ErrKeyNotFound }

// NewKeyNotFound constructs the detailed KeyNotFound error for a (pool, hex)
// pair.
func NewKeyNotFound(poolId, hex string) error {
	return &KeyNotFoundDetail{PoolId: poolId, Hex: hex}
}
