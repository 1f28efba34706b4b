package scim

import (
	"strings"
	"time"
)

// Schema URNs used by the user resource.
const (
	UserSchema  = "urn:ietf:params:scim:schemas:core:2.0:User"
	ErrorSchema = "urn:ietf:params:scim:api:messages:2.0:Error"
)

// ResourceTypeUser is the meta.resourceType of every user resource.
const ResourceTypeUser = "User"

// TimeFormat is the layout of meta.created and meta.lastModified.
const TimeFormat = "2006-01-02T15:04:05Z"

// User is a provisioned identity.
type User struct {
	Schemas    []string `json:"schemas"`
	ID         string   `json:"id"`         // Generated, immutable after creation.
	ExternalID string   `json:"externalId"` // Identifier assigned by the provisioning client.
	Meta       Meta     `json:"meta"`
	Name       Name     `json:"name"`
	UserName   string   `json:"userName"`
}

// Name holds the components of a user's real name.
type Name struct {
	Formatted  string `json:"formatted,omitempty"`
	FamilyName string `json:"familyName,omitempty"`
	GivenName  string `json:"givenName,omitempty"`
}

// Display returns the formatted name, falling back to the given and family names.
func (n Name) Display() string {
	if n.Formatted != "" {
		return n.Formatted
	}
	return strings.TrimSpace(strings.Join([]string{n.GivenName, n.FamilyName}, " "))
}

// Meta is derived once, when the resource is created.
type Meta struct {
	ResourceType string `json:"resourceType"`
	Created      string `json:"created"`
	LastModified string `json:"lastModified"`
	Location     string `json:"location"`
	Version      string `json:"version"`
}

// FormatTime renders t in UTC using TimeFormat.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// CreateUserRequest is the body of POST /Users.
type CreateUserRequest struct {
	Schemas    []string `json:"schemas"`
	UserName   string   `json:"userName"`
	ExternalID string   `json:"externalId"`
	Name       *Name    `json:"name"`
}

// Validate reports the first missing or empty required field.
func (r *CreateUserRequest) Validate() error {
	switch {
	case r.Schemas == nil:
		return &ValidationError{Field: "schemas", Reason: "field required"}
	case strings.TrimSpace(r.UserName) == "":
		return &ValidationError{Field: "userName", Reason: "must not be empty"}
	case strings.TrimSpace(r.ExternalID) == "":
		return &ValidationError{Field: "externalId", Reason: "must not be empty"}
	case r.Name == nil:
		return &ValidationError{Field: "name", Reason: "field required"}
	}
	return nil
}

// ValidationError describes a create request that cannot be accepted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}
