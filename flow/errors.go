package flow

import "errors"

var (
	ErrNotFound         = errors.New("node not found")
	ErrKindMismatch     = errors.New("operation not valid for flow kind")
	ErrPortNotFound     = errors.New("no port towards next hop")
	ErrRootExists       = errors.New("tree already has a root")
	ErrNoRoot           = errors.New("tree has no root")
	ErrEmptyPath        = errors.New("unicast path has no relays")
	ErrNotRelay         = errors.New("node is not a relay")
	ErrNotEndpoint      = errors.New("node is not an endpoint")
	ErrNotCompiled      = errors.New("flow has not been compiled")
	ErrAlreadyCompiled  = errors.New("flow has already been compiled")
	ErrPacketIndex      = errors.New("packet index out of range")
	ErrUnresolved       = errors.New("flow parameter is unset")
	ErrInvalidParameter = errors.New("invalid flow parameter")
	ErrDuplicateFlow    = errors.New("flow name already in use")
)
