package directory

import (
	"context"
	"testing"

	ldapv3 "github.com/go-ldap/ldap/v3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tullo/scimd/internal/scim"
)

const baseDN = "ou=users,dc=example,dc=com"

func testUser() *scim.User {
	return &scim.User{
		Schemas:    []string{scim.UserSchema},
		ID:         "2819c223-7f76-453a-919d-413861904646",
		ExternalID: "E1",
		UserName:   "jdoe",
		Name: scim.Name{
			Formatted:  "John Doe",
			FamilyName: "Doe",
			GivenName:  "John",
		},
	}
}

func attrMap(attrs []ldapv3.Attribute) map[string][]string {
	m := make(map[string][]string, len(attrs))
	for _, a := range attrs {
		m[a.Type] = a.Vals
	}
	return m
}

func TestAddWritesEntry(t *testing.T) {
	var got *ldapv3.AddRequest
	conn := &FakeConn{
		AddFunc: func(req *ldapv3.AddRequest) error {
			got = req
			return nil
		},
	}
	c := New(conn, baseDN)

	out := c.Add(context.Background(), testUser())
	require.False(t, out.Failed())
	assert.Equal(t, OpAdd, out.Op)
	assert.Equal(t, ResultOK, out.Result())

	require.NotNil(t, got)
	assert.Equal(t, "uid=2819c223-7f76-453a-919d-413861904646,"+baseDN, got.DN)
	assert.Equal(t, map[string][]string{
		"objectClass":    {"top", "inetOrgPerson"},
		"uid":            {"2819c223-7f76-453a-919d-413861904646", "jdoe"},
		"cn":             {"John Doe"},
		"sn":             {"Doe"},
		"givenName":      {"John"},
		"employeeNumber": {"E1"},
	}, attrMap(got.Attributes))
}

func TestAddFailureIsCaptured(t *testing.T) {
	conn := &FakeConn{
		AddFunc: func(*ldapv3.AddRequest) error {
			return ldapv3.NewError(ldapv3.LDAPResultEntryAlreadyExists, errors.New("exists"))
		},
	}
	out := New(conn, baseDN).Add(context.Background(), testUser())
	assert.True(t, out.Failed())
	assert.Equal(t, ResultError, out.Result())
}

func TestAttributesFallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc string
		user scim.User
		want map[string][]string
	}{
		{
			desc: "empty name uses userName",
			user: scim.User{ID: "id1", UserName: "jdoe", ExternalID: "E1"},
			want: map[string][]string{
				"objectClass":    {"top", "inetOrgPerson"},
				"uid":            {"id1", "jdoe"},
				"cn":             {"jdoe"},
				"sn":             {"jdoe"},
				"employeeNumber": {"E1"},
			},
		},
		{
			desc: "cn joined from given and family names",
			user: scim.User{ID: "id1", UserName: "id1", Name: scim.Name{GivenName: "Luke", FamilyName: "Skywalker"}},
			want: map[string][]string{
				"objectClass": {"top", "inetOrgPerson"},
				"uid":         {"id1"},
				"cn":          {"Luke Skywalker"},
				"sn":          {"Skywalker"},
				"givenName":   {"Luke"},
			},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.desc, func(t *testing.T) {
			got := make(map[string][]string)
			for _, a := range Attributes(&test.user) {
				got[a.Type] = a.Vals
			}
			assert.Equal(t, test.want, got)
		})
	}
}

func TestLookup(t *testing.T) {
	var got *ldapv3.SearchRequest
	conn := &FakeConn{
		SearchFunc: func(req *ldapv3.SearchRequest) (*ldapv3.SearchResult, error) {
			got = req
			return &ldapv3.SearchResult{Entries: []*ldapv3.Entry{
				ldapv3.NewEntry("uid=id1,"+baseDN, map[string][]string{"uid": {"id1", "jdoe"}, "cn": {"John Doe"}}),
				ldapv3.NewEntry("uid=id1,ou=other,dc=example,dc=com", map[string][]string{"uid": {"id1"}}),
			}}, nil
		},
	}

	out := New(conn, baseDN).Lookup(context.Background(), "id1")
	require.False(t, out.Failed())
	require.NotNil(t, out.Entry)
	assert.Equal(t, "uid=id1,"+baseDN, out.Entry.DN)
	assert.Equal(t, []string{"John Doe"}, out.Entry.Attributes["cn"])
	assert.Equal(t, ResultOK, out.Result())

	require.NotNil(t, got)
	assert.Equal(t, baseDN, got.BaseDN)
	assert.Equal(t, ldapv3.ScopeWholeSubtree, got.Scope)
	assert.Equal(t, "(&(objectClass=inetOrgPerson)(uid=id1))", got.Filter)
}

func TestLookupEscapesFilter(t *testing.T) {
	var filter string
	conn := &FakeConn{
		SearchFunc: func(req *ldapv3.SearchRequest) (*ldapv3.SearchResult, error) {
			filter = req.Filter
			return &ldapv3.SearchResult{}, nil
		},
	}

	out := New(conn, baseDN).Lookup(context.Background(), "*)(uid=*")
	assert.Nil(t, out.Entry)
	assert.Equal(t, ResultNotFound, out.Result())
	assert.Equal(t, `(&(objectClass=inetOrgPerson)(uid=\2a\29\28uid=\2a))`, filter)
}

func TestLookupFailureIsCaptured(t *testing.T) {
	conn := &FakeConn{
		SearchFunc: func(*ldapv3.SearchRequest) (*ldapv3.SearchResult, error) {
			return nil, ldapv3.NewError(ldapv3.ErrorNetwork, errors.New("connection closed"))
		},
	}
	out := New(conn, baseDN).Lookup(context.Background(), "id1")
	assert.True(t, out.Failed())
	assert.Nil(t, out.Entry)
	assert.Equal(t, ResultError, out.Result())
}

func TestRemove(t *testing.T) {
	var dn string
	conn := &FakeConn{
		DelFunc: func(req *ldapv3.DelRequest) error {
			dn = req.DN
			return nil
		},
	}
	out := New(conn, baseDN).Remove(context.Background(), "id1")
	assert.False(t, out.Failed())
	assert.Equal(t, "uid=id1,"+baseDN, dn)
}

func TestRemoveMissingEntry(t *testing.T) {
	conn := &FakeConn{
		DelFunc: func(*ldapv3.DelRequest) error {
			return ldapv3.NewError(ldapv3.LDAPResultNoSuchObject, errors.New("no such object"))
		},
	}
	out := New(conn, baseDN).Remove(context.Background(), "id1")
	assert.True(t, out.Failed())
	assert.Equal(t, ResultNotFound, out.Result())
}

func TestDNEscapesValue(t *testing.T) {
	c := New(&FakeConn{}, baseDN)

	tests := []struct {
		id   string
		want string
	}{
		{"plain", "uid=plain," + baseDN},
		{"a,b+c", `uid=a\,b\+c,` + baseDN},
		{" lead", `uid=\ lead,` + baseDN},
		{"trail ", `uid=trail\ ,` + baseDN},
		{"#hash", `uid=\#hash,` + baseDN},
		{`q"s\`, `uid=q\"s\\,` + baseDN},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, c.DN(test.id), test.id)
	}
}

func TestClose(t *testing.T) {
	conn := &FakeConn{}
	New(conn, baseDN).Close()
	assert.True(t, conn.Closed)
}
