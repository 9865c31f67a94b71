// Package errkind defines the tagged error kinds from section 7 of the
// design: IOError, IntegrityError, ManifestError, SelectionError, and
// TransportError. Callers wrap one of these sentinels with fmt.Errorf's
// %w verb and test for a kind with errors.Is, the same way the teacher
// distinguishes S3 error types with errors.As.
package errkind

import "errors"

var (
	// IO covers open/read/write/seek/close/symlink/unlink failures.
	IO = errors.New("io error")
	// Integrity covers a CRC32 mismatch between computed and recorded data.
	Integrity = errors.New("integrity error")
	// Manifest covers a missing or malformed key, an unknown container
	// id, or an unreadable summary file.
	Manifest = errors.New("manifest error")
	// Selection covers exhaustion of candidate checkpoints.
	Selection = errors.New("selection error")
	// Transport covers a collective operation failure.
	Transport = errors.New("transport error")
)
