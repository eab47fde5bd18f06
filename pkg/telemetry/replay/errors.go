package replay

import "errors"

// ErrEmptyArchive means there is nothing to replay.
var ErrEmptyArchive = errors.New("archive is empty")
