// Package stockroom holds the domain types of the catalog importer and the
// storage contracts the pipeline depends on.
package stockroom

import (
	"errors"
)

var (
	ErrConflict = errors.New("resource already exists")
	ErrNotFound = errors.New("resource not found")
)

// Repository is everything the importer, api and cli need from storage.
type Repository interface {
	SourceRepo
	ProductRepo
	UserRepo
}
