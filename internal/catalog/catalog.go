// Package catalog retrieves supplier XML feeds and turns them into canonical
// product items.
package catalog

// Item is one normalized feed entry. It only lives for the duration of a run.
type Item struct {
	ExternalID  string
	Name        string
	Description string
	Price       float64
	Stock       int
}
