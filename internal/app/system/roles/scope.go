// internal/app/system/roles/scope.go
package roles

import (
	"context"
	"fmt"

	"github.com/eduplatform/campusgate/internal/domain/models"
)

// Scope describes what slice of the role records a user may list.
type Scope struct {
	// CanList indicates whether the user can list records at all.
	CanList bool
	// All indicates platform-wide visibility. If false, Careers bounds
	// what the user sees.
	All bool
	// Careers is the admin scope listing is restricted to.
	Careers []string
}

// ListScope determines uid's listing visibility.
//
//   - Platform admins see everything.
//   - Career admins see every non-admin record plus every admin record
//     sharing at least one career with them. A legacy admin tag with no
//     careers yields a scoped view with an empty career set.
//   - Everyone else is denied.
func (e *Engine) ListScope(ctx context.Context, uid string) (Scope, error) {
	rec, _, err := e.records.Get(ctx, uid)
	if err != nil {
		return Scope{}, err
	}

	switch {
	case rec.PlatformAdmin:
		return Scope{CanList: true, All: true}, nil
	case rec.IsAdmin():
		return Scope{CanList: true, Careers: rec.AdminCareers}, nil
	default:
		return Scope{}, nil
	}
}

// VisibleRecords returns the role records uid may list, per ListScope.
// Denied callers get ErrForbidden.
func (e *Engine) VisibleRecords(ctx context.Context, uid string) ([]models.RoleRecord, error) {
	scope, err := e.ListScope(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !scope.CanList {
		return nil, fmt.Errorf("%w: uid %q may not list role records", ErrForbidden, uid)
	}
	if scope.All {
		return e.records.ListAll(ctx)
	}
	return e.records.ListVisibleTo(ctx, scope.Careers)
}

// GetRecordFor returns targetUID's role record when requesterUID may
// see it: oneself always, platform admins always, and career admins
// for any non-admin record or any admin sharing at least one career.
func (e *Engine) GetRecordFor(ctx context.Context, requesterUID, targetUID string) (models.RoleRecord, error) {
	target, _, err := e.records.Get(ctx, targetUID)
	if err != nil {
		return models.RoleRecord{}, err
	}
	if requesterUID == targetUID {
		return target, nil
	}

	scope, err := e.ListScope(ctx, requesterUID)
	if err != nil {
		return models.RoleRecord{}, err
	}
	if scope.CanList && (scope.All || visibleInScope(target, scope.Careers)) {
		return target, nil
	}
	return models.RoleRecord{}, fmt.Errorf("%w: uid %q may not view %q", ErrForbidden, requesterUID, targetUID)
}

// visibleInScope mirrors the store-side listing filter: non-admins are
// visible to any scoped admin; admins only when scopes intersect.
func visibleInScope(rec models.RoleRecord, careers []string) bool {
	if !rec.IsAdmin() {
		return true
	}
	for _, c := range careers {
		if rec.AdministersCareer(c) {
			return true
		}
	}
	return false
}
