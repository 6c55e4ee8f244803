package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tuition-pricing-service/internal/apperror"
	"tuition-pricing-service/internal/entity"
)

// fakeCatalog is a mutable in-memory Directory and SubjectCatalog.
type fakeCatalog struct {
	mu          sync.Mutex
	subjects    map[string]entity.Subject
	students    map[string]entity.Student
	classes     map[string]entity.Class
	enrollments map[string]decimal.Decimal
	err         error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		subjects:    map[string]entity.Subject{},
		students:    map[string]entity.Student{},
		classes:     map[string]entity.Class{},
		enrollments: map[string]decimal.Decimal{},
	}
}

func (f *fakeCatalog) addSubject(id, classID, price string, free bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects[id] = entity.Subject{ID: id, ClassID: classID, Name: id, BasePrice: decimal.RequireFromString(price), IsFree: free}
}

func (f *fakeCatalog) addStudent(id string, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.students[id] = entity.Student{ID: id, Name: id, IsActive: active}
}

func (f *fakeCatalog) addClass(id string, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classes[id] = entity.Class{ID: id, Name: id, IsActive: active}
}

func (f *fakeCatalog) GetSubjectsByIds(ctx context.Context, ids []string) ([]entity.Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []entity.Subject
	for _, id := range ids {
		if s, ok := f.subjects[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetStudent(ctx context.Context, id string) (*entity.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.students[id]
	if !ok {
		return nil, apperror.NewNotFoundError("student %s not found", id)
	}
	return &s, nil
}

func (f *fakeCatalog) GetStudents(ctx context.Context, ids []string) ([]entity.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Student
	for _, id := range ids {
		if s, ok := f.students[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetClass(ctx context.Context, id string) (*entity.Class, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.classes[id]
	if !ok {
		return nil, apperror.NewNotFoundError("class %s not found", id)
	}
	return &c, nil
}

func (f *fakeCatalog) GetEnrollmentTotals(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]decimal.Decimal, len(ids))
	for _, id := range ids {
		out[id] = f.enrollments[id]
	}
	return out, nil
}

type staticRules struct {
	mu    sync.Mutex
	rules []entity.DiscountRule
	last  entity.DiscountContext
	err   error
}

func (s *staticRules) GetApplicableRules(ctx context.Context, dctx entity.DiscountContext) ([]entity.DiscountRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = dctx
	return append([]entity.DiscountRule(nil), s.rules...), s.err
}

type staticTaxes struct {
	mu      sync.Mutex
	configs []entity.TaxConfiguration
	err     error
}

func (s *staticTaxes) GetActiveConfigurations(ctx context.Context, at time.Time) ([]entity.TaxConfiguration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.TaxConfiguration(nil), s.configs...), s.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) PublishSnapshotCreated(ctx context.Context, snap *entity.PricingSnapshot, result *entity.PricingResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, snap.SnapshotID)
	return p.err
}

type failingStore struct {
	err error
}

func (s failingStore) Insert(ctx context.Context, snap *entity.PricingSnapshot) error { return s.err }
func (s failingStore) Get(ctx context.Context, id string) (*entity.PricingSnapshot, error) {
	return nil, s.err
}

func pct(id string, typ entity.DiscountType, value string, order int) entity.DiscountRule {
	return entity.DiscountRule{
		ID:          id,
		Type:        typ,
		ValueType:   entity.ValuePercentage,
		Value:       decimal.RequireFromString(value),
		Description: id,
		Order:       order,
	}
}

func flat(id string, value string, order int) entity.DiscountRule {
	return entity.DiscountRule{
		ID:          id,
		Type:        entity.DiscountTypeOther,
		ValueType:   entity.ValueFlat,
		Value:       decimal.RequireFromString(value),
		Description: id,
		Order:       order,
	}
}

var taxEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func tax(code string, typ entity.TaxType, rate string, order int, inclusive bool) entity.TaxConfiguration {
	return entity.TaxConfiguration{
		ID:          "tax-" + code,
		Name:        code,
		Type:        typ,
		Rate:        decimal.RequireFromString(rate),
		Code:        code,
		ValidFrom:   taxEpoch,
		IsActive:    true,
		Order:       order,
		IsInclusive: inclusive,
	}
}
