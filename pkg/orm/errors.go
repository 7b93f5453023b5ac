// pkg/orm/errors.go
package orm

import (
	"errors"

	"talos-store/pkg/db"
)

// Error kinds returned by the engine. Returned errors wrap both the kind and the
// underlying cause, so errors.Is works for the kind and errors.As for driver errors.
var (
	ErrSerialization   = errors.New("orm: record cannot be reduced to a flat field map")
	ErrKeyFieldMissing = errors.New("orm: key field missing from record")
	ErrNotFound        = errors.New("orm: no row matched")
	ErrMultipleRows    = errors.New("orm: more than one row matched")
	ErrExecution       = errors.New("orm: statement execution failed")
	ErrNotRegistered   = errors.New("orm: type has no entity descriptor")

	// Pool errors surface unchanged from pkg/db.
	ErrAcquireTimeout = db.ErrAcquireTimeout
	ErrInitialization = db.ErrInitialization
)
