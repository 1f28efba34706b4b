package directory

import (
	ldapv3 "github.com/go-ldap/ldap/v3"
)

// FakeConn is a Conn whose operations are driven by the *Func fields.
// A nil hook succeeds with an empty result.
type FakeConn struct {
	AddFunc    func(*ldapv3.AddRequest) error
	DelFunc    func(*ldapv3.DelRequest) error
	SearchFunc func(*ldapv3.SearchRequest) (*ldapv3.SearchResult, error)
	Closed     bool
}

func (m *FakeConn) Add(req *ldapv3.AddRequest) error {
	if m.AddFunc != nil {
		return m.AddFunc(req)
	}
	return nil
}

func (m *FakeConn) Del(req *ldapv3.DelRequest) error {
	if m.DelFunc != nil {
		return m.DelFunc(req)
	}
	return nil
}

func (m *FakeConn) Search(req *ldapv3.SearchRequest) (*ldapv3.SearchResult, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(req)
	}
	return &ldapv3.SearchResult{}, nil
}

func (m *FakeConn) Close() { m.Closed = true }
