package directory

import (
	"strings"

	ldapv3 "github.com/go-ldap/ldap/v3"

	"github.com/tullo/scimd/internal/scim"
)

const objectClassPerson = "inetOrgPerson"

// Op names a directory operation.
type Op string

const (
	OpAdd    Op = "add"
	OpLookup Op = "lookup"
	OpRemove Op = "remove"
)

// Result labels, as reported by Outcome.Result.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Outcome is the result of one best-effort directory operation.
type Outcome struct {
	Op    Op
	DN    string
	Entry *Entry // Set by a successful lookup that matched.
	Err   error
}

// Failed reports whether the directory rejected the operation.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Result classifies the outcome as ok, not_found or error.
func (o Outcome) Result() string {
	switch {
	case o.Err == nil && o.Op == OpLookup && o.Entry == nil:
		return ResultNotFound
	case o.Err == nil:
		return ResultOK
	case ldapv3.IsErrorWithCode(o.Err, ldapv3.LDAPResultNoSuchObject):
		return ResultNotFound
	}
	return ResultError
}

// Entry is a directory entry returned by a lookup.
type Entry struct {
	DN         string
	Attributes map[string][]string
}

func newEntry(e *ldapv3.Entry) *Entry {
	attrs := make(map[string][]string, len(e.Attributes))
	for _, a := range e.Attributes {
		attrs[a.Name] = a.Values
	}
	return &Entry{DN: e.DN, Attributes: attrs}
}

// Attribute is one attribute of the entry written for a user.
type Attribute struct {
	Type string
	Vals []string
}

// Attributes maps a user resource to inetOrgPerson attributes.
// cn and sn are mandatory for the object class, so both fall back to the
// userName; empty optional attributes are left out.
func Attributes(u *scim.User) []Attribute {
	uids := []string{u.ID}
	if u.UserName != "" && u.UserName != u.ID {
		uids = append(uids, u.UserName)
	}

	cn := u.Name.Display()
	if cn == "" {
		cn = u.UserName
	}
	sn := u.Name.FamilyName
	if sn == "" {
		sn = u.UserName
	}

	attrs := []Attribute{
		{Type: "objectClass", Vals: []string{"top", objectClassPerson}},
		{Type: "uid", Vals: uids},
		{Type: "cn", Vals: []string{cn}},
		{Type: "sn", Vals: []string{sn}},
	}
	if u.Name.GivenName != "" {
		attrs = append(attrs, Attribute{Type: "givenName", Vals: []string{u.Name.GivenName}})
	}
	if u.ExternalID != "" {
		attrs = append(attrs, Attribute{Type: "employeeNumber", Vals: []string{u.ExternalID}})
	}
	return attrs
}

// escapeRDNValue escapes an attribute value for use in a DN (RFC 4514).
func escapeRDNValue(v string) string {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case c == ',' || c == '+' || c == '"' || c == '\\' || c == '<' || c == '>' || c == ';' || c == '=':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == 0:
			b.WriteString(`\00`)
		case c == ' ' && (i == 0 || i == len(v)-1):
			b.WriteString(`\ `)
		case c == '#' && i == 0:
			b.WriteString(`\#`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
