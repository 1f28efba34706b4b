// Package directory mirrors user resources into an LDAP directory.
//
// Every operation is best-effort: failures are returned as part of an Outcome
// value and never as an error, so callers can log them without letting them
// affect the primary request.
package directory

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	ldapv3 "github.com/go-ldap/ldap/v3"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tullo/scimd/internal/scim"
)

var tracer = otel.Tracer("github.com/tullo/scimd/internal/directory")

// Conn is the subset of an LDAP connection the client uses.
type Conn interface {
	Add(*ldapv3.AddRequest) error
	Del(*ldapv3.DelRequest) error
	Search(*ldapv3.SearchRequest) (*ldapv3.SearchResult, error)
	Close()
}

var _ Conn = (*ldapv3.Conn)(nil)

// Config holds what is needed to dial and bind a directory connection.
type Config struct {
	URL                string
	BindDN             string
	BindPassword       string
	BaseDN             string
	StartTLS           bool
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// Client issues add, search and delete operations under a fixed base DN.
type Client struct {
	conn   Conn
	baseDN string
}

// New returns a Client using an already bound connection.
func New(conn Conn, baseDN string) *Client {
	return &Client{
		conn:   conn,
		baseDN: baseDN,
	}
}

// Dial connects and binds to the directory described by cfg.
// The connection is never re-established; a lost connection makes every
// subsequent operation fail until the process restarts.
func Dial(cfg Config) (*Client, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}

	conn, err := ldapv3.DialURL(cfg.URL, ldapv3.DialWithTLSConfig(tlsConfig))
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", cfg.URL)
	}
	if cfg.Timeout > 0 {
		conn.SetTimeout(cfg.Timeout)
	}

	if cfg.StartTLS {
		if err := conn.StartTLS(tlsConfig); err != nil {
			conn.Close()
			return nil, errors.Wrap(err, "starting tls")
		}
	}

	if err := conn.Bind(cfg.BindDN, cfg.BindPassword); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "binding as %s", cfg.BindDN)
	}

	return New(conn, cfg.BaseDN), nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.conn.Close()
}

// DN returns the distinguished name of the entry for id.
func (c *Client) DN(id string) string {
	return "uid=" + escapeRDNValue(id) + "," + c.baseDN
}

// Add writes the directory entry for u.
func (c *Client) Add(ctx context.Context, u *scim.User) Outcome {
	out := Outcome{Op: OpAdd, DN: c.DN(u.ID)}

	_, span := tracer.Start(ctx, "directory.Add", trace.WithAttributes(attribute.String("dn", out.DN)))
	defer span.End()

	req := ldapv3.NewAddRequest(out.DN, nil)
	for _, a := range Attributes(u) {
		req.Attribute(a.Type, a.Vals)
	}

	out.Err = c.conn.Add(req)
	return out.trace(span)
}

// Lookup searches the base DN for the entry whose uid is id.
// If the directory reports several matches the first one wins.
func (c *Client) Lookup(ctx context.Context, id string) Outcome {
	out := Outcome{Op: OpLookup, DN: c.DN(id)}

	_, span := tracer.Start(ctx, "directory.Lookup", trace.WithAttributes(attribute.String("dn", out.DN)))
	defer span.End()

	req := ldapv3.NewSearchRequest(c.baseDN,
		ldapv3.ScopeWholeSubtree, ldapv3.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf("(&(objectClass=%s)(uid=%s))", objectClassPerson, ldapv3.EscapeFilter(id)),
		[]string{"*"}, nil)

	result, err := c.conn.Search(req)
	if err != nil {
		out.Err = err
		return out.trace(span)
	}
	if len(result.Entries) > 0 {
		out.Entry = newEntry(result.Entries[0])
		out.DN = out.Entry.DN
	}
	return out.trace(span)
}

// Remove deletes the entry for id.
func (c *Client) Remove(ctx context.Context, id string) Outcome {
	out := Outcome{Op: OpRemove, DN: c.DN(id)}

	_, span := tracer.Start(ctx, "directory.Remove", trace.WithAttributes(attribute.String("dn", out.DN)))
	defer span.End()

	out.Err = c.conn.Del(ldapv3.NewDelRequest(out.DN, nil))
	return out.trace(span)
}

func (o Outcome) trace(span trace.Span) Outcome {
	span.SetAttributes(attribute.String("result", o.Result()))
	if o.Err != nil {
		span.RecordError(o.Err)
		span.SetStatus(codes.Error, string(o.Op)+" failed")
	}
	return o
}
