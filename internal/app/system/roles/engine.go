// Package roles implements the authorization state machine over stored
// role records.
//
// Per identity, a record is only ever in one of four shapes: plain
// student; student+admin with one or more admin careers; student with
// platform_admin; or student+admin+platform_admin. The engine's job is
// to keep every mutation inside that set: an admin never loses the
// student tag, a revoked last career never orphans the admin tag, and
// a record is never written with admin but no scope.
//
// Mutations are read-modify-write against the document store with no
// locking. Operations on different uids are fully independent;
// concurrent mutations of the same uid admit a lost-update race, which
// is accepted here — callers needing strict consistency for same-uid
// admin changes must serialize externally or supply a conditional-write
// store.
package roles

import (
	"context"
	"errors"
	"fmt"
	"slices"

	rolestore "github.com/eduplatform/campusgate/internal/app/store/roles"
	"github.com/eduplatform/campusgate/internal/app/system/normalize"
	"github.com/eduplatform/campusgate/internal/domain/models"
	"go.uber.org/zap"
)

var (
	// ErrForbidden is returned when the requester fails the
	// authorization precondition for a grant or revoke. Checked before
	// any mutation.
	ErrForbidden = errors.New("not authorized for this career")

	// ErrEmptyCareerCode is returned when a career code is blank after
	// canonicalization. Checked before any store access.
	ErrEmptyCareerCode = errors.New("career code is required")
)

// RecordStore is the slice of the role store the engine needs. The
// Mongo-backed rolestore.Store satisfies it; tests substitute an
// in-memory fake, and a conditional-write implementation can be slotted
// in without touching the engine.
type RecordStore interface {
	Get(ctx context.Context, uid string) (models.RoleRecord, bool, error)
	Put(ctx context.Context, uid string, upd rolestore.RecordUpdate) error
	ListAll(ctx context.Context) ([]models.RoleRecord, error)
	ListVisibleTo(ctx context.Context, careers []string) ([]models.RoleRecord, error)
}

// CareerRegistry registers careers referenced by grants.
type CareerRegistry interface {
	Ensure(ctx context.Context, code, name string) (models.Career, error)
}

// Engine applies role mutations with invariant-preserving merges.
type Engine struct {
	records RecordStore
	careers CareerRegistry
	log     *zap.Logger
}

func NewEngine(records RecordStore, careers CareerRegistry, logger *zap.Logger) *Engine {
	return &Engine{records: records, careers: careers, log: logger}
}

// EnsureDefaultStudent guarantees uid has a role record containing at
// least the student role. Missing records are created as plain
// students; existing records get "student" unioned in with everything
// else untouched. Idempotent.
func (e *Engine) EnsureDefaultStudent(ctx context.Context, uid string) (models.RoleRecord, error) {
	rec, found, err := e.records.Get(ctx, uid)
	if err != nil {
		return models.RoleRecord{}, err
	}

	if !found {
		roles := []string{models.RoleStudent}
		careers := []string{}
		pa := false
		if err := e.records.Put(ctx, uid, rolestore.RecordUpdate{
			Roles:         &roles,
			AdminCareers:  &careers,
			PlatformAdmin: &pa,
		}); err != nil {
			return models.RoleRecord{}, err
		}
		rec.Roles = roles
		rec.AdminCareers = careers
		return rec, nil
	}

	roles := union(roleTags(rec.Roles), models.RoleStudent)
	if err := e.records.Put(ctx, uid, rolestore.RecordUpdate{Roles: &roles}); err != nil {
		return models.RoleRecord{}, err
	}
	rec.Roles = roles
	return rec, nil
}

// GrantCareerAdmin makes targetUID an admin of the given career.
//
// The requester must be a platform admin, or an admin of that same
// career; anything else is ErrForbidden before any mutation. The
// career is registered idempotently first — registration failure is
// logged and ignored, since a grant may reference a career that is
// materializing concurrently. Granting an already-held career is a
// no-op that still refreshes the record.
func (e *Engine) GrantCareerAdmin(ctx context.Context, requesterUID, targetUID, code string) (models.RoleRecord, error) {
	code = normalize.CareerCode(code)
	if code == "" {
		return models.RoleRecord{}, ErrEmptyCareerCode
	}

	if err := e.requireCareerAuthority(ctx, requesterUID, code); err != nil {
		return models.RoleRecord{}, err
	}

	if _, err := e.careers.Ensure(ctx, code, ""); err != nil {
		e.log.Warn("career auto-registration failed during grant, continuing",
			zap.String("career", code), zap.Error(err))
	}

	rec, _, err := e.records.Get(ctx, targetUID)
	if err != nil {
		return models.RoleRecord{}, err
	}

	roles := union(roleTags(rec.Roles), models.RoleAdmin, models.RoleStudent)
	careers := union(rec.AdminCareers, code)
	if err := e.records.Put(ctx, targetUID, rolestore.RecordUpdate{
		Roles:        &roles,
		AdminCareers: &careers,
	}); err != nil {
		return models.RoleRecord{}, err
	}

	rec.Roles = roles
	rec.AdminCareers = careers
	return rec, nil
}

// RevokeCareerAdmin removes the given career from targetUID's admin
// scope. The requester needs authority over the career being revoked,
// not over anything the target holds. Revoking a career the target
// never had is a no-op, not an error; when the last career goes, the
// admin tag goes with it, and student is always re-ensured.
func (e *Engine) RevokeCareerAdmin(ctx context.Context, requesterUID, targetUID, code string) (models.RoleRecord, error) {
	code = normalize.CareerCode(code)
	if code == "" {
		return models.RoleRecord{}, ErrEmptyCareerCode
	}

	if err := e.requireCareerAuthority(ctx, requesterUID, code); err != nil {
		return models.RoleRecord{}, err
	}

	rec, found, err := e.records.Get(ctx, targetUID)
	if err != nil {
		return models.RoleRecord{}, err
	}

	if !found {
		// Revoke before any grant: persist the minimal student state.
		return e.persistDefault(ctx, targetUID, rec)
	}

	careers := remove(rec.AdminCareers, code)
	roles := roleTags(rec.Roles)
	if len(careers) == 0 {
		roles = remove(roles, models.RoleAdmin)
	}
	roles = union(roles, models.RoleStudent)

	if err := e.records.Put(ctx, targetUID, rolestore.RecordUpdate{
		Roles:        &roles,
		AdminCareers: &careers,
	}); err != nil {
		return models.RoleRecord{}, err
	}

	rec.Roles = roles
	rec.AdminCareers = careers
	return rec, nil
}

// RevokeAllCareers clears targetUID's entire admin scope in one write:
// admin_careers emptied, admin tag dropped, student kept,
// platform_admin untouched. There is no per-career authorization check
// here — callers gate this to platform admins.
func (e *Engine) RevokeAllCareers(ctx context.Context, targetUID string) (models.RoleRecord, error) {
	rec, found, err := e.records.Get(ctx, targetUID)
	if err != nil {
		return models.RoleRecord{}, err
	}

	if !found {
		return e.persistDefault(ctx, targetUID, rec)
	}

	roles := union(remove(roleTags(rec.Roles), models.RoleAdmin), models.RoleStudent)
	careers := []string{}

	if err := e.records.Put(ctx, targetUID, rolestore.RecordUpdate{
		Roles:        &roles,
		AdminCareers: &careers,
	}); err != nil {
		return models.RoleRecord{}, err
	}

	rec.Roles = roles
	rec.AdminCareers = careers
	return rec, nil
}

// SetPlatformAdmin toggles platform-wide authority for targetUID.
// Enabling bootstraps a record if needed and leaves admin/admin_careers
// alone. Disabling mirrors the revoke logic: an admin tag with no
// careers left behind it is dropped, so revocation never strands a
// bare "admin" with no scope.
func (e *Engine) SetPlatformAdmin(ctx context.Context, targetUID string, enabled bool) (models.RoleRecord, error) {
	rec, found, err := e.records.Get(ctx, targetUID)
	if err != nil {
		return models.RoleRecord{}, err
	}

	if !found {
		rec.PlatformAdmin = enabled
		return e.persistDefault(ctx, targetUID, rec)
	}

	roles := union(roleTags(rec.Roles), models.RoleStudent)
	if !enabled && len(rec.AdminCareers) == 0 {
		roles = union(remove(roles, models.RoleAdmin), models.RoleStudent)
	}

	if err := e.records.Put(ctx, targetUID, rolestore.RecordUpdate{
		Roles:         &roles,
		PlatformAdmin: &enabled,
	}); err != nil {
		return models.RoleRecord{}, err
	}

	rec.Roles = roles
	rec.PlatformAdmin = enabled
	return rec, nil
}

// AuthorizeForCareer reports whether uid may manage the given career:
// platform admins always, career admins within their own scope. Pure
// predicate — every mutating operation re-derives this from stored
// state rather than trusting a caller-supplied claim.
func (e *Engine) AuthorizeForCareer(ctx context.Context, uid, code string) (bool, error) {
	code = normalize.CareerCode(code)
	if code == "" {
		return false, ErrEmptyCareerCode
	}
	rec, _, err := e.records.Get(ctx, uid)
	if err != nil {
		return false, err
	}
	if rec.PlatformAdmin {
		return true, nil
	}
	return rec.IsAdmin() && rec.AdministersCareer(code), nil
}

// IsPlatformAdmin reports whether uid has platform-wide authority,
// re-derived from stored state. Route gates for platform-only
// operations (revoke_all, platform_admin toggles) use this rather than
// any session claim.
func (e *Engine) IsPlatformAdmin(ctx context.Context, uid string) (bool, error) {
	rec, _, err := e.records.Get(ctx, uid)
	if err != nil {
		return false, err
	}
	return rec.PlatformAdmin, nil
}

func (e *Engine) requireCareerAuthority(ctx context.Context, uid, code string) error {
	ok, err := e.AuthorizeForCareer(ctx, uid, code)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: uid %q, career %q", ErrForbidden, uid, code)
	}
	return nil
}

// persistDefault writes the default-student shape for uid, keeping
// whatever PlatformAdmin value rec already carries, and returns it.
func (e *Engine) persistDefault(ctx context.Context, uid string, rec models.RoleRecord) (models.RoleRecord, error) {
	roles := []string{models.RoleStudent}
	careers := []string{}
	pa := rec.PlatformAdmin
	if err := e.records.Put(ctx, uid, rolestore.RecordUpdate{
		Roles:         &roles,
		AdminCareers:  &careers,
		PlatformAdmin: &pa,
	}); err != nil {
		return models.RoleRecord{}, err
	}
	rec.Roles = roles
	rec.AdminCareers = careers
	return rec, nil
}

// roleTags canonicalizes stored role tags. Records written before the
// tags were normalized may carry mixed-case or padded values; mutations
// pass the stored slice through here so those records converge on the
// canonical form when next written. Blank tags are dropped.
func roleTags(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if tag := normalize.Role(s); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// union returns the sorted, de-duplicated union of in and add.
func union(in []string, add ...string) []string {
	out := make([]string, 0, len(in)+len(add))
	seen := make(map[string]struct{}, len(in)+len(add))
	for _, s := range append(slices.Clone(in), add...) {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// remove returns in without drop, preserving order. Never returns nil.
func remove(in []string, drop string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != drop {
			out = append(out, s)
		}
	}
	return out
}
