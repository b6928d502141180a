package walk

import "errors"

// ErrNoSuchParent is returned by Commit.Parent for an out-of-range index.
var ErrNoSuchParent = errors.New("walk: no such parent")
