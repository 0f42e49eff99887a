package repository

import "errors"

// ErrNoFetcher indicates a repository was built without a fallback fetcher
var ErrNoFetcher = errors.New("no photo fetcher configured")
