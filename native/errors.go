package native

import (
	"github.com/inrack/inrack/engine"
	"github.com/pkg/errors"
)

var (
	ErrTooManyPlugins     = engine.ErrTooManyPlugins
	ErrInvalidLabel       = errors.New("no native plugin with that label")
	ErrInstantiate        = errors.New("native plugin failed to instantiate")
	ErrClientRegistration = errors.New("could not register engine client")
	ErrPortRegistration   = errors.New("could not register engine port")
	ErrClosed             = errors.New("plugin is closed")
)
