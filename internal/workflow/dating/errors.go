package dating

import "errors"

// ErrStuck means a group machine refused an input the driver relies on.
var ErrStuck = errors.New("group machine did not move")
