package resolve

import "errors"

// ErrCyclicDependency indicates that the dependency graph reached a
// project version already being resolved on the active path.
var ErrCyclicDependency = errors.New("cyclic dependency")
