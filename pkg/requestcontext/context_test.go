package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
)

func TestValidate(t *testing.T) {
	ok := RequestContext{ActorID: id.NewActorID(), OrganizationID: id.NewOrganizationID()}
	assert.NoError(t, ok.Validate())

	for name, rc := range map[string]RequestContext{
		"zero":            {},
		"no organization": {ActorID: id.NewActorID()},
		"no actor":        {OrganizationID: id.NewOrganizationID()},
	} {
		t.Run(name, func(t *testing.T) {
			assert.True(t, dErrors.HasCode(rc.Validate(), dErrors.CodeUnauthorized))
		})
	}
}

func TestAccessors(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, RequestContext{}, Actor(ctx))
	assert.Empty(t, ClientIP(ctx))
	assert.Empty(t, RequestID(ctx))

	rc := RequestContext{ActorID: id.NewActorID(), OrganizationID: id.NewOrganizationID(), Role: "examiner"}
	ctx = WithActor(ctx, rc)
	ctx = WithClientMetadata(ctx, "192.0.2.1", "curl/8")
	ctx = WithRequestID(ctx, "req-1")

	assert.Equal(t, rc, Actor(ctx))
	assert.Equal(t, "192.0.2.1", ClientIP(ctx))
	assert.Equal(t, "curl/8", UserAgent(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
}

func TestNow(t *testing.T) {
	pinned := time.Date(2026, 6, 2, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, pinned, Now(WithTime(context.Background(), pinned)))

	wall := Now(context.Background())
	assert.Equal(t, time.UTC, wall.Location())
	assert.Zero(t, wall.Nanosecond()%1000)
}
