package testutil

import (
	"context"
	"sort"
	"time"

	careerstore "github.com/eduplatform/campusgate/internal/app/store/careers"
	rolestore "github.com/eduplatform/campusgate/internal/app/store/roles"
	"github.com/eduplatform/campusgate/internal/app/system/normalize"
	"github.com/eduplatform/campusgate/internal/domain/models"
)

// MemRecordStore is an in-memory role record store with the same merge
// semantics as the Mongo-backed store. Handler tests wire it into the
// engine to avoid a live database.
type MemRecordStore struct {
	Records map[string]models.RoleRecord

	// Err, when set, is returned from every call.
	Err error
}

func NewMemRecordStore() *MemRecordStore {
	return &MemRecordStore{Records: make(map[string]models.RoleRecord)}
}

// Seed stores a record directly, bypassing merge semantics.
func (m *MemRecordStore) Seed(rec models.RoleRecord) {
	m.Records[rec.UID] = rec
}

func (m *MemRecordStore) Get(ctx context.Context, uid string) (models.RoleRecord, bool, error) {
	if m.Err != nil {
		return models.RoleRecord{}, false, m.Err
	}
	rec, ok := m.Records[uid]
	if !ok {
		return rolestore.DefaultRecord(uid), false, nil
	}
	return rec, true, nil
}

func (m *MemRecordStore) Put(ctx context.Context, uid string, upd rolestore.RecordUpdate) error {
	if m.Err != nil {
		return m.Err
	}
	rec, ok := m.Records[uid]
	if !ok {
		rec = rolestore.DefaultRecord(uid)
		rec.Roles = nil
		rec.AdminCareers = nil
		rec.CreatedAt = time.Now().UTC()
	}
	if upd.Roles != nil {
		rec.Roles = append([]string(nil), (*upd.Roles)...)
	}
	if upd.AdminCareers != nil {
		rec.AdminCareers = append([]string(nil), (*upd.AdminCareers)...)
	}
	if upd.PlatformAdmin != nil {
		rec.PlatformAdmin = *upd.PlatformAdmin
	}
	rec.UpdatedAt = time.Now().UTC()
	m.Records[uid] = rec
	return nil
}

func (m *MemRecordStore) ListAll(ctx context.Context) ([]models.RoleRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.RoleRecord, 0, len(m.Records))
	for _, rec := range m.Records {
		out = append(out, rec)
	}
	sortByUID(out)
	return out, nil
}

func (m *MemRecordStore) ListVisibleTo(ctx context.Context, careers []string) ([]models.RoleRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.RoleRecord, 0, len(m.Records))
	for _, rec := range m.Records {
		if !rec.IsAdmin() {
			out = append(out, rec)
			continue
		}
		for _, c := range careers {
			if rec.AdministersCareer(c) {
				out = append(out, rec)
				break
			}
		}
	}
	sortByUID(out)
	return out, nil
}

func sortByUID(recs []models.RoleRecord) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].UID < recs[j].UID })
}

// MemCareerRegistry is an in-memory career registry.
type MemCareerRegistry struct {
	Careers map[string]models.Career
	Err     error
}

func NewMemCareerRegistry() *MemCareerRegistry {
	return &MemCareerRegistry{Careers: make(map[string]models.Career)}
}

func (m *MemCareerRegistry) Ensure(ctx context.Context, code, name string) (models.Career, error) {
	if m.Err != nil {
		return models.Career{}, m.Err
	}
	code = normalize.CareerCode(code)
	if code == "" {
		return models.Career{}, careerstore.ErrEmptyCode
	}
	career, ok := m.Careers[code]
	if !ok {
		now := time.Now().UTC()
		career = models.Career{Code: code, Name: name, CreatedAt: now, UpdatedAt: now}
		m.Careers[code] = career
	}
	return career, nil
}

func (m *MemCareerRegistry) List(ctx context.Context) ([]models.Career, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.Career, 0, len(m.Careers))
	for _, c := range m.Careers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
