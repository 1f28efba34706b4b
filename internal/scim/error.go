package scim

import (
	"strconv"

	"github.com/pkg/errors"
)

// Type is a SCIM detail error keyword (RFC 7644, table 9).
type Type string

// The closed set of detail error keywords.
const (
	InvalidFilter Type = "invalidFilter"
	TooMany       Type = "tooMany"
	Uniqueness    Type = "uniqueness"
	Mutability    Type = "mutability"
	InvalidSyntax Type = "invalidSyntax"
	InvalidPath   Type = "invalidPath"
	NoTarget      Type = "noTarget"
	InvalidValue  Type = "invalidValue"
	InvalidVers   Type = "invalidVers"
	Sensitive     Type = "sensitive"
)

// Valid reports whether t is one of the defined keywords.
func (t Type) Valid() bool {
	switch t {
	case InvalidFilter, TooMany, Uniqueness, Mutability, InvalidSyntax,
		InvalidPath, NoTarget, InvalidValue, InvalidVers, Sensitive:
		return true
	}
	return false
}

// Error is the body returned with every non-2xx response.
type Error struct {
	Schemas  []string `json:"schemas"`
	Status   string   `json:"status"`
	ScimType Type     `json:"scimType,omitempty"`
	Detail   string   `json:"detail,omitempty"`
}

// NewError builds an error resource for the given HTTP status.
func NewError(status int, scimType Type, detail string) *Error {
	return &Error{
		Schemas:  []string{ErrorSchema},
		Status:   strconv.Itoa(status),
		ScimType: scimType,
		Detail:   detail,
	}
}

// Validate checks the invariants of an error resource.
func (e *Error) Validate() error {
	found := false
	for _, s := range e.Schemas {
		if s == ErrorSchema {
			found = true
			break
		}
	}
	if !found {
		return errors.Errorf("schemas must include %q", ErrorSchema)
	}
	if _, err := strconv.ParseUint(e.Status, 10, 16); err != nil {
		return errors.New("status must be a numeric HTTP status code as a string")
	}
	if e.ScimType != "" && !e.ScimType.Valid() {
		return errors.Errorf("unknown scimType %q", e.ScimType)
	}
	return nil
}
