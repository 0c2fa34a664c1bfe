package database

import "errors"

// ErrNoDatabase indicates a repository was used without an open database.
var ErrNoDatabase = errors.New("database: missing database context")
