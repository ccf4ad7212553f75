// Package v1 holds the wire types of the sources admin api.
package v1

import (
	"net/url"
	"time"
	"unicode/utf8"

	srerrs "github.com/jdholdren/stockroom/internal/errors"
	"github.com/jdholdren/stockroom/internal/stockroom"
)

const (
	maxNameLength = 255
	maxURLLength  = 500
)

type Source struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	URL                 string     `json:"url"`
	IsActive            bool       `json:"is_active"`
	ImportIntervalHours int        `json:"import_interval_hours"`
	PreferredImportTime *string    `json:"preferred_import_time"`
	LastImportedAt      *time.Time `json:"last_imported_at"`
	LastImportedCount   *int       `json:"last_imported_count"`
	LastError           *string    `json:"last_error"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type ListSourcesResponse struct {
	Sources []Source `json:"sources"`
}

type CreateSourceRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	// Defaults to true
	IsActive *bool `json:"is_active"`
	// Defaults to 24
	ImportIntervalHours *int    `json:"import_interval_hours"`
	PreferredImportTime *string `json:"preferred_import_time"`
}

// Validate checks that the body (minus logic checks) is valid.
//
// Returns an *errors.Error if the request is invalid.
func (r CreateSourceRequest) Validate() error {
	var details []srerrs.Detail
	details = append(details, validateName(r.Name)...)
	details = append(details, validateURL(r.URL)...)
	details = append(details, validateSchedule(r.ImportIntervalHours, r.PreferredImportTime)...)

	return srerrs.Detailed("request was invalid", details)
}

// UpdateSourceRequest only touches the fields that are present. An empty
// preferred_import_time removes it.
type UpdateSourceRequest struct {
	Name                *string `json:"name"`
	URL                 *string `json:"url"`
	IsActive            *bool   `json:"is_active"`
	ImportIntervalHours *int    `json:"import_interval_hours"`
	PreferredImportTime *string `json:"preferred_import_time"`
}

func (r UpdateSourceRequest) Validate() error {
	var details []srerrs.Detail
	if r.Name != nil {
		details = append(details, validateName(*r.Name)...)
	}
	if r.URL != nil {
		details = append(details, validateURL(*r.URL)...)
	}
	preferred := r.PreferredImportTime
	if preferred != nil && *preferred == "" {
		preferred = nil
	}
	details = append(details, validateSchedule(r.ImportIntervalHours, preferred)...)

	return srerrs.Detailed("request was invalid", details)
}

type ImportRequest struct {
	// Who owns the imported products, the first admin if empty.
	AdminID string `json:"admin_id,omitempty"`
}

func (ImportRequest) Validate() error {
	return nil
}

type ImportResponse struct {
	Message string `json:"message"`
}

func validateName(name string) []srerrs.Detail {
	switch {
	case name == "":
		return []srerrs.Detail{{Field: "name", Error: "name is required"}}
	case utf8.RuneCountInString(name) > maxNameLength:
		return []srerrs.Detail{{Field: "name", Error: "name must be at most 255 characters"}}
	}
	return nil
}

func validateURL(raw string) []srerrs.Detail {
	if raw == "" {
		return []srerrs.Detail{{Field: "url", Error: "url is required"}}
	}
	if len(raw) > maxURLLength {
		return []srerrs.Detail{{Field: "url", Error: "url must be at most 500 characters"}}
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return []srerrs.Detail{{Field: "url", Error: "url must be an http(s) url"}}
	}
	return nil
}

func validateSchedule(interval *int, preferred *string) []srerrs.Detail {
	var details []srerrs.Detail
	if interval != nil && (*interval < 1 || *interval > stockroom.MaxImportIntervalHours) {
		details = append(details, srerrs.Detail{Field: "import_interval_hours", Error: "import_interval_hours must be between 1 and 168"})
	}
	if preferred != nil {
		if _, err := stockroom.ParseTimeOfDay(*preferred); err != nil {
			details = append(details, srerrs.Detail{Field: "preferred_import_time", Error: "preferred_import_time must be HH:MM"})
		}
	}
	return details
}
