package service

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tuition-pricing-service/internal/apperror"
	"tuition-pricing-service/internal/entity"
	"tuition-pricing-service/internal/money"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

type SubjectCatalog interface {
	// GetSubjectsByIds returns the subjects that exist among ids, in any order.
	GetSubjectsByIds(ctx context.Context, ids []string) ([]entity.Subject, error)
}

// Directory is the read model of students, classes and enrollments.
type Directory interface {
	GetStudent(ctx context.Context, id string) (*entity.Student, error)
	GetStudents(ctx context.Context, ids []string) ([]entity.Student, error)
	GetClass(ctx context.Context, id string) (*entity.Class, error)
	GetEnrollmentTotals(ctx context.Context, studentIDs []string) (map[string]decimal.Decimal, error)
}

type DiscountRuleProvider interface {
	GetApplicableRules(ctx context.Context, dctx entity.DiscountContext) ([]entity.DiscountRule, error)
}

type TaxConfigurationProvider interface {
	GetActiveConfigurations(ctx context.Context, at time.Time) ([]entity.TaxConfiguration, error)
}

// SnapshotStore is a write-once key space. Insert must fail for an existing id.
type SnapshotStore interface {
	Insert(ctx context.Context, snap *entity.PricingSnapshot) error
	Get(ctx context.Context, id string) (*entity.PricingSnapshot, error)
}

type EventPublisher interface {
	PublishSnapshotCreated(ctx context.Context, snap *entity.PricingSnapshot, result *entity.PricingResult) error
}

type Deps struct {
	Subjects  SubjectCatalog
	Directory Directory
	Discounts DiscountRuleProvider
	Taxes     TaxConfigurationProvider
	Snapshots SnapshotStore
	Events    EventPublisher
	Options   Options
	Now       func() time.Time
	NewID     func(at time.Time) string
}

// PricingService calculates tuition prices and keeps an immutable snapshot of each calculation.
type PricingService struct {
	subjects  SubjectCatalog
	directory Directory
	discounts DiscountRuleProvider
	taxes     TaxConfigurationProvider
	snapshots SnapshotStore
	events    EventPublisher
	opts      Options
	rounder   money.Rounder
	now       func() time.Time
	newID     func(at time.Time) string
}

// NewPricingService creates a new instance of PricingService
func NewPricingService(deps Deps) (*PricingService, error) {
	switch {
	case deps.Subjects == nil:
		return nil, errors.New("pricing service: subject catalog is required")
	case deps.Directory == nil:
		return nil, errors.New("pricing service: directory is required")
	case deps.Discounts == nil:
		return nil, errors.New("pricing service: discount rule provider is required")
	case deps.Taxes == nil:
		return nil, errors.New("pricing service: tax configuration provider is required")
	case deps.Snapshots == nil:
		return nil, errors.New("pricing service: snapshot store is required")
	}

	opts := deps.Options
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	if opts.Rounding == "" {
		opts.Rounding = money.RoundHalfEven
	}
	if opts.TaxStacking == "" {
		opts.TaxStacking = TaxStackingCascading
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	newID := deps.NewID
	if newID == nil {
		newID = NewSnapshotID
	}

	return &PricingService{
		subjects:  deps.Subjects,
		directory: deps.Directory,
		discounts: deps.Discounts,
		taxes:     deps.Taxes,
		snapshots: deps.Snapshots,
		events:    deps.Events,
		opts:      opts,
		rounder:   money.NewRounder(opts.Rounding),
		now: func() time.Time {
			return now().UTC().Truncate(time.Microsecond)
		},
		newID: newID,
	}, nil
}

// NewSnapshotID returns a ULID whose time component is at.
func NewSnapshotID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}

// Calculate prices a request and persists the result as a new snapshot.
// Nothing is persisted when an error is returned.
func (s *PricingService) Calculate(ctx context.Context, req entity.PricingRequest) (*entity.PricingResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	at := s.now()

	if err := s.checkStudentAndClass(ctx, req.StudentID, req.ClassID); err != nil {
		return nil, err
	}

	subjects, err := s.resolveSubjects(ctx, req.ClassID, req.SubjectIDs)
	if err != nil {
		return nil, err
	}
	_, totalBase := subjectPricing(subjects, s.rounder)

	siblingInfo, err := s.resolveSiblings(ctx, req.SiblingIDs)
	if err != nil {
		return nil, err
	}

	dctx := entity.DiscountContext{
		StudentID:      req.StudentID,
		ClassID:        req.ClassID,
		SubjectIDs:     req.SubjectIDs,
		SubjectCount:   len(req.SubjectIDs),
		TotalBasePrice: totalBase,
		SiblingCount:   siblingInfo.SiblingCount,
	}
	if siblingInfo.TotalSiblingsPrice != nil {
		dctx.TotalSiblingsPrice = *siblingInfo.TotalSiblingsPrice
	}

	rules, err := s.discounts.GetApplicableRules(ctx, dctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error getting discount rules")
		return nil, apperror.AsDependency(err, "loading discount rules")
	}

	taxes, err := s.taxes.GetActiveConfigurations(ctx, at)
	if err != nil {
		logger.Error().Err(err).Msg("Error getting tax configurations")
		return nil, apperror.AsDependency(err, "loading tax configurations")
	}
	for _, c := range taxes {
		if err := c.Check(); err != nil {
			logger.Error().Err(err).Msg("Rejected tax configuration")
			return nil, apperror.NewDependencyError(err, "invalid tax configuration")
		}
	}

	breakdown := calculateBreakdown(breakdownInput{
		subjects:     subjects,
		rules:        rules,
		taxes:        taxes,
		siblingCount: siblingInfo.SiblingCount,
		at:           at,
	}, s.opts)

	result := &entity.PricingResult{
		SnapshotID:       s.newID(at),
		PricingBreakdown: breakdown,
		SiblingInfo:      siblingInfo,
		CalculatedAt:     at,
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Wrap(err, "encoding pricing result")
	}
	// callers get the decoded payload so a later GetSnapshot returns an identical value
	result, err = decodeResult(payload)
	if err != nil {
		return nil, errors.Wrap(err, "decoding pricing result")
	}
	snap := &entity.PricingSnapshot{
		SnapshotID:   result.SnapshotID,
		StudentID:    req.StudentID,
		ClassID:      req.ClassID,
		CalculatedAt: at,
		Payload:      payload,
	}
	if err := s.snapshots.Insert(ctx, snap); err != nil {
		logger.Error().Err(err).Msgf("Error persisting snapshot %s", snap.SnapshotID)
		return nil, apperror.AsDependency(err, "persisting snapshot")
	}

	// the snapshot is durable from here on; later failures are only logged
	if s.events != nil {
		if err := s.events.PublishSnapshotCreated(ctx, snap, result); err != nil {
			logger.Error().Err(err).Msgf("Error publishing snapshot %s", snap.SnapshotID)
		}
	}

	logger.Info().
		Str("snapshotId", result.SnapshotID).
		Str("studentId", req.StudentID).
		Str("finalAmount", breakdown.FinalAmount.StringFixed(money.Places)).
		Msg("Pricing calculated")
	return result, nil
}

// GetSnapshot returns a stored result exactly as it was calculated. It never recomputes.
func (s *PricingService) GetSnapshot(ctx context.Context, snapshotID string) (*entity.PricingResult, error) {
	snapshotID = strings.TrimSpace(snapshotID)
	if snapshotID == "" {
		return nil, apperror.NewValidationError("snapshot id is required",
			apperror.FieldError{Field: "snapshotId", Error: "snapshotId is required"})
	}

	snap, err := s.snapshots.Get(ctx, snapshotID)
	if err != nil {
		if !apperror.IsNotFound(err) {
			logger.Error().Err(err).Msgf("Error getting snapshot %s", snapshotID)
		}
		return nil, apperror.AsDependency(err, "loading snapshot")
	}

	result, err := decodeResult(snap.Payload)
	if err != nil {
		logger.Error().Err(err).Msgf("Error unmarshalling snapshot %s", snapshotID)
		return nil, apperror.NewDependencyError(err, "decoding snapshot")
	}
	return result, nil
}

func decodeResult(payload []byte) (*entity.PricingResult, error) {
	var result entity.PricingResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *PricingService) checkStudentAndClass(ctx context.Context, studentID, classID string) error {
	student, err := s.directory.GetStudent(ctx, studentID)
	if err != nil {
		return apperror.AsDependency(err, "resolving student")
	}
	if !student.IsActive {
		return apperror.NewStateError("student %s is not active", studentID)
	}

	class, err := s.directory.GetClass(ctx, classID)
	if err != nil {
		return apperror.AsDependency(err, "resolving class")
	}
	if !class.IsActive {
		return apperror.NewStateError("class %s is not active", classID)
	}
	return nil
}

// resolveSubjects returns the requested subjects in request order.
func (s *PricingService) resolveSubjects(ctx context.Context, classID string, ids []string) ([]entity.Subject, error) {
	found, err := s.subjects.GetSubjectsByIds(ctx, ids)
	if err != nil {
		logger.Error().Err(err).Msg("Error getting subjects")
		return nil, apperror.AsDependency(err, "loading subjects")
	}

	byID := make(map[string]entity.Subject, len(found))
	for _, subj := range found {
		byID[subj.ID] = subj
	}

	out := make([]entity.Subject, 0, len(ids))
	for _, id := range ids {
		subj, ok := byID[id]
		if !ok {
			return nil, apperror.NewNotFoundError("subject %s not found", id)
		}
		if subj.ClassID != classID {
			return nil, apperror.NewStateError("subject %s does not belong to class %s", id, classID)
		}
		out = append(out, subj)
	}
	return out, nil
}

func (s *PricingService) resolveSiblings(ctx context.Context, ids []string) (entity.SiblingInfo, error) {
	info := entity.SiblingInfo{SiblingIDs: []string{}}
	if len(ids) == 0 {
		return info, nil
	}

	students, err := s.directory.GetStudents(ctx, ids)
	if err != nil {
		logger.Error().Err(err).Msg("Error getting siblings")
		return info, apperror.AsDependency(err, "resolving siblings")
	}
	byID := make(map[string]entity.Student, len(students))
	for _, st := range students {
		byID[st.ID] = st
	}
	for _, id := range ids {
		st, ok := byID[id]
		if !ok {
			return info, apperror.NewNotFoundError("sibling %s not found", id)
		}
		if !st.IsActive {
			return info, apperror.NewStateError("sibling %s is not active", id)
		}
	}

	totals, err := s.directory.GetEnrollmentTotals(ctx, ids)
	if err != nil {
		logger.Error().Err(err).Msg("Error getting sibling enrollments")
		return info, apperror.AsDependency(err, "loading sibling enrollments")
	}
	sum := decimal.Zero
	for _, id := range ids {
		sum = sum.Add(totals[id])
	}
	sum = s.rounder.Round(sum)

	info.SiblingCount = len(ids)
	info.SiblingIDs = append(info.SiblingIDs, ids...)
	info.TotalSiblingsPrice = &sum
	return info, nil
}
