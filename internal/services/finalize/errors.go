package finalize

import "errors"

// Domain errors the orchestrator surfaces. Handlers map these to HTTP codes.
var (
	// ErrBatchNotFound: no batch with the given id.
	ErrBatchNotFound = errors.New("import batch not found")
	// ErrNotOwner: batch exists but belongs to another user.
	ErrNotOwner = errors.New("import batch does not belong to caller")
	// ErrBatchNotPending: batch already reached a terminal or in-flight
	// state; terminal states are sticky and can never be re-finalized.
	ErrBatchNotPending = errors.New("import batch is not pending")
	// ErrNoPendingMappings: batch carries no AI mapping proposal to act on.
	ErrNoPendingMappings = errors.New("no pending AI mappings on batch")
	// ErrExpiredUpload: the held raw file was evicted; the upload must be
	// redone. The batch is left untouched.
	ErrExpiredUpload = errors.New("uploaded file content expired, please re-upload")
	// ErrOrphanedUploadLog: no upload log from initial-upload time could be
	// located. Indicates an upstream bug, not a user-correctable condition.
	ErrOrphanedUploadLog = errors.New("no upload log found for batch")
)
