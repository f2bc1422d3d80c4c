// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware resolves the authenticated actor once and stores a RequestContext.
// Handlers read it back and pass it explicitly into every core operation; services
// never look the actor up from ambient state.
//
// Usage in handlers:
//
//	rc := requestcontext.Actor(ctx)
//	ev, err := svc.CreateEvidence(ctx, rc, caseID, input)
//
// Usage in tests:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	rc := requestcontext.RequestContext{ActorID: a, OrganizationID: o, Role: "examiner"}
package requestcontext

import (
	"context"
	"time"

	id "custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
)

// RequestContext identifies who is acting and in which organization.
type RequestContext struct {
	ActorID        id.ActorID
	OrganizationID id.OrganizationID
	Role           string
}

// Validate rejects a context without an actor or organization scope.
func (rc RequestContext) Validate() error {
	if rc.ActorID.IsNil() || rc.OrganizationID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authenticated actor and organization required")
	}
	return nil
}

type (
	actorKey       struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

func value[T any](ctx context.Context, key any) (T, bool) {
	v, ok := ctx.Value(key).(T)
	return v, ok
}

// Actor returns the authenticated RequestContext, or the zero value (which
// fails Validate) when the request was not authenticated.
func Actor(ctx context.Context) RequestContext {
	rc, _ := value[RequestContext](ctx, actorKey{})
	return rc
}

func WithActor(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, actorKey{}, rc)
}

// ClientIP and UserAgent feed the audit trail's origin columns.
func ClientIP(ctx context.Context) string {
	ip, _ := value[string](ctx, clientIPKey{})
	return ip
}

func UserAgent(ctx context.Context) string {
	ua, _ := value[string](ctx, userAgentKey{})
	return ua
}

// WithClientMetadata stores both origin values; service tests use it in place
// of the HTTP middleware.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

func RequestID(ctx context.Context) string {
	reqID, _ := value[string](ctx, requestIDKey{})
	return reqID
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now is the request's pinned clock. Outside a request (CLI, replay worker)
// it reads the wall clock at the same microsecond precision the store keeps.
func Now(ctx context.Context) time.Time {
	if t, ok := value[time.Time](ctx, requestTimeKey{}); ok {
		return t
	}
	return time.Now().UTC().Truncate(time.Microsecond)
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
