package container

import "errors"

// ErrStorageInitFailed a configured history backend could not be opened.
var ErrStorageInitFailed = errors.New("storage initialization failed")
