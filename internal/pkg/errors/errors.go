// Package errors holds the generic sentinels shared between the
// repositories and the job error taxonomy in internal/jobserrors.
package errors

import "errors"

// ErrNotFound marks a missing row. Repositories return nil rows rather than
// raising it; handlers wrap it when a row they require is absent.
var ErrNotFound = errors.New("not found")
