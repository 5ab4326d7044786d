package shared

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestActorAuthorize(t *testing.T) {
	tenant := uuid.New()
	user := uuid.New()

	tests := []struct {
		name    string
		actor   Actor
		allowed []Role
		kind    ErrorKind
	}{
		{"role in set", Actor{UserID: user, TenantID: tenant, Role: RoleSales}, []Role{RoleSales, RoleManager}, ""},
		{"admin always allowed", Actor{UserID: user, TenantID: tenant, Role: RoleAdmin}, []Role{RoleAccountant}, ""},
		{"role outside set", Actor{UserID: user, TenantID: tenant, Role: RoleViewer}, []Role{RoleAccountant}, KindAuthorization},
		{"anonymous actor", Actor{Role: RoleAdmin}, []Role{RoleAdmin}, KindAuthorization},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.actor.Authorize(tt.allowed...)
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsKind(err, tt.kind))
		})
	}
}

func TestRoleIsValid(t *testing.T) {
	assert.True(t, RoleAccountant.IsValid())
	assert.False(t, Role("OWNER").IsValid())
}
