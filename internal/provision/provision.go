// Package provision creates, reads and deletes SCIM users.
//
// The cache is the store of record. Every change is mirrored into the
// directory afterwards, on a best-effort basis: a directory failure is logged
// and counted but never fails or rolls back the request, so the two stores may
// drift apart.
package provision

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/tullo/scimd/internal/cache"
	"github.com/tullo/scimd/internal/directory"
	"github.com/tullo/scimd/internal/scim"
)

// Version is the meta.version tag of every created resource.
const Version = "v1.0"

var (
	// ErrNotFound is returned when no user exists for an identifier.
	ErrNotFound = errors.New("user not found")

	// ErrNotImplemented is returned by Replace and Patch.
	ErrNotImplemented = errors.New("operation not implemented")
)

var tracer = otel.Tracer("github.com/tullo/scimd/internal/provision")

// Store is the primary key-value store for serialized users.
type Store interface {
	Set(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) (int, error)
}

// Mirror is the secondary sink every change is copied to.
type Mirror interface {
	Add(ctx context.Context, u *scim.User) directory.Outcome
	Lookup(ctx context.Context, id string) directory.Outcome
	Remove(ctx context.Context, id string) directory.Outcome
}

// Service orchestrates the dual write to the Store and the Mirror.
type Service struct {
	store   Store
	mirror  Mirror
	baseURL string
	clock   clock.Clock
	newID   func() string
	log     *zap.Logger
	metrics *Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used to stamp metadata.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithLogger sets the logger directory outcomes are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithMetrics sets the counters directory outcomes are reported to.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New returns a Service. baseURL prefixes the location of every resource.
func New(store Store, mirror Mirror, baseURL string, opts ...Option) *Service {
	s := &Service{
		store:   store,
		mirror:  mirror,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		clock:   clock.New(),
		newID:   uuid.NewString,
		log:     zap.NewNop(),
		metrics: NewMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the URI of the user with the given id.
func (s *Service) Location(id string) string {
	return s.baseURL + "/Users/" + id
}

// Create provisions a new user. The cache is written first; if that fails the
// directory is not touched. The directory write is best-effort.
func (s *Service) Create(ctx context.Context, req *scim.CreateUserRequest) (*scim.User, error) {
	ctx, span := tracer.Start(ctx, "provision.Create")
	defer span.End()

	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}

	id := s.newID()
	now := scim.FormatTime(s.clock.Now())
	u := &scim.User{
		Schemas:    []string{scim.UserSchema},
		ID:         id,
		ExternalID: req.ExternalID,
		UserName:   req.UserName,
		Name:       *req.Name,
		Meta: scim.Meta{
			ResourceType: scim.ResourceTypeUser,
			Created:      now,
			LastModified: now,
			Location:     s.Location(id),
			Version:      Version,
		},
	}
	span.SetAttributes(attribute.String("id", id))

	b, err := json.Marshal(u)
	if err != nil {
		return nil, errors.Wrap(err, "encoding user")
	}
	if err := s.store.Set(ctx, id, b); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cache write failed")
		return nil, errors.Wrapf(err, "storing user %s", id)
	}

	s.observe(s.mirror.Add(ctx, u))

	return u, nil
}

// Get returns the user stored under id. A directory lookup is issued on a hit
// for observability only; its result does not change the response.
func (s *Service) Get(ctx context.Context, id string) (*scim.User, error) {
	ctx, span := tracer.Start(ctx, "provision.Get")
	defer span.End()
	span.SetAttributes(attribute.String("id", id))

	ok, err := s.store.Exists(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "checking user %s", id)
	}
	if !ok {
		return nil, ErrNotFound
	}

	b, err := s.store.Get(ctx, id)
	if err != nil {
		// Deleted between the two calls.
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "loading user %s", id)
	}

	s.observe(s.mirror.Lookup(ctx, id))

	var u scim.User
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, errors.Wrapf(err, "decoding user %s", id)
	}
	return &u, nil
}

// Delete removes the user from the cache and the directory. The directory
// removal is attempted even when the cache holds nothing for id, so that an
// orphaned entry is cleaned up; the result only depends on the cache.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "provision.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("id", id))

	n, err := s.store.Delete(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "deleting user %s", id)
	}

	s.observe(s.mirror.Remove(ctx, id))

	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Replace is not supported.
func (s *Service) Replace(ctx context.Context, id string) error {
	return ErrNotImplemented
}

// Patch is not supported.
func (s *Service) Patch(ctx context.Context, id string) error {
	return ErrNotImplemented
}

// observe forwards a directory outcome to the log and the metrics.
func (s *Service) observe(out directory.Outcome) {
	s.metrics.observe(out)

	fields := []zap.Field{
		zap.String("op", string(out.Op)),
		zap.String("dn", out.DN),
		zap.String("result", out.Result()),
	}
	if out.Failed() {
		s.log.Warn("directory mirror failed", append(fields, zap.Error(out.Err))...)
		return
	}
	if out.Entry != nil {
		fields = append(fields, zap.Any("attributes", out.Entry.Attributes))
	}
	s.log.Info("directory mirror", fields...)
}
