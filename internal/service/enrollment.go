package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/presenza-app/presenza/internal/domain"
	"github.com/presenza-app/presenza/internal/metrics"
	"github.com/presenza-app/presenza/internal/store"
	"go.uber.org/zap"
)

var (
	ErrLastNameRequired  = errors.New("last_name is required")
	ErrFirstNameRequired = errors.New("first_name is required")
)

// MissingFieldError names the first required field absent from a
// submission.
type MissingFieldError struct {
	Label string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("required field %q is missing", e.Label)
}

// UnknownFieldError names the first submitted field id that does not
// belong to the enrollment form.
type UnknownFieldError struct {
	FieldTemplateID uuid.UUID
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("field %s does not belong to this form", e.FieldTemplateID)
}

// FieldValueInput is one submitted (field template, value) pair.
type FieldValueInput struct {
	FieldTemplateID uuid.UUID
	Value           string
}

// EnrollInput carries a self-service enrollment submission. The tenant
// is derived from the chosen form, never supplied by the caller.
type EnrollInput struct {
	FormID      uuid.UUID
	LastName    string
	FirstName   string
	Title       string
	Institution string
	Phone       string
	Email       string
	FieldValues []FieldValueInput
}

// EnrollResult is the created visitor with its submitted field values.
type EnrollResult struct {
	User        *domain.User        `json:"user"`
	FieldValues []domain.FieldValue `json:"field_values"`
	Message     string              `json:"message"`
}

// EnrollmentService validates a dynamic field set against a form,
// allocates an identifier and persists the visitor atomically.
type EnrollmentService struct {
	users     domain.UserStore
	tenants   domain.TenantStore
	forms     domain.FormStore
	allocator *IdentifierAllocator
	// insertAttempts bounds the allocate-and-insert retry loop taken
	// when a concurrent enrollment wins the same candidate identifier.
	insertAttempts int
	// metrics is optional; tests run without a registry.
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewEnrollmentService(
	users domain.UserStore,
	tenants domain.TenantStore,
	forms domain.FormStore,
	allocator *IdentifierAllocator,
	m *metrics.Metrics,
	logger *zap.Logger,
) *EnrollmentService {
	return &EnrollmentService{
		users:          users,
		tenants:        tenants,
		forms:          forms,
		allocator:      allocator,
		insertAttempts: 3,
		metrics:        m,
		logger:         logger,
	}
}

// Enroll validates the submission, then runs a bounded
// allocate-and-insert loop: the allocator's pre-check avoids most
// collisions, and a late unique violation at insert time reallocates
// and retries. All validation completes before any write.
func (s *EnrollmentService) Enroll(ctx context.Context, input EnrollInput) (*EnrollResult, error) {
	if input.LastName == "" {
		return nil, ErrLastNameRequired
	}
	if input.FirstName == "" {
		return nil, ErrFirstNameRequired
	}

	form, err := s.resolveEnrollmentForm(ctx, input.FormID)
	if err != nil {
		return nil, err
	}

	fields, err := s.forms.ListFieldTemplates(ctx, form.ID)
	if err != nil {
		return nil, err
	}
	values, err := validateFieldValues(fields, input.FieldValues)
	if err != nil {
		return nil, err
	}
	for i := range values {
		values[i].FormID = form.ID
	}

	user, err := s.createWithRetry(ctx, form, input, values)
	if err != nil {
		return nil, err
	}

	// Re-read for response composition; the insert only returns the
	// generated columns.
	created, err := s.users.GetByID(ctx, user.ID, form.TenantID)
	if err != nil {
		return nil, err
	}
	createdValues, err := s.users.ListFieldValues(ctx, user.ID, form.TenantID)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementEnrollments()
	}

	return &EnrollResult{
		User:        created,
		FieldValues: createdValues,
		Message:     fmt.Sprintf("enrollment complete, your identifier is %s", created.Identifier),
	}, nil
}

// resolveEnrollmentForm fetches the form by id alone. A missing form, a
// non-enrollment form, or an inactive owning tenant all read as not
// found to the caller.
func (s *EnrollmentService) resolveEnrollmentForm(ctx context.Context, formID uuid.UUID) (*domain.FormTemplate, error) {
	form, err := s.forms.GetByID(ctx, formID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrFormNotFound
		}
		return nil, err
	}
	if form.Purpose != domain.PurposeEnrollment {
		return nil, ErrFormNotFound
	}

	tenant, err := s.tenants.GetByID(ctx, form.TenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrFormNotFound
		}
		return nil, err
	}
	if !tenant.Active {
		return nil, ErrFormNotFound
	}

	if !form.Active {
		return nil, ErrFormInactive
	}
	return form, nil
}

// validateFieldValues checks required coverage, then membership.
// Fields are walked in display order so the first reported error is
// deterministic.
func validateFieldValues(fields []domain.FieldTemplate, submitted []FieldValueInput) ([]domain.FieldValue, error) {
	byID := make(map[uuid.UUID]*domain.FieldTemplate, len(fields))
	for i := range fields {
		byID[fields[i].ID] = &fields[i]
	}

	submittedIDs := make(map[uuid.UUID]bool, len(submitted))
	for _, sv := range submitted {
		submittedIDs[sv.FieldTemplateID] = true
	}

	for _, ft := range fields {
		if ft.Required && !submittedIDs[ft.ID] {
			return nil, &MissingFieldError{Label: ft.Label}
		}
	}

	values := make([]domain.FieldValue, 0, len(submitted))
	for _, sv := range submitted {
		ft, ok := byID[sv.FieldTemplateID]
		if !ok {
			return nil, &UnknownFieldError{FieldTemplateID: sv.FieldTemplateID}
		}
		values = append(values, domain.FieldValue{
			FieldTemplateID: ft.ID,
			FieldType:       ft.FieldType,
			Value:           sv.Value,
		})
	}
	return values, nil
}

// AdminUserInput carries an administrator-created visitor. The tenant
// comes from the authenticated admin, and the identifier is prefixed
// with the tenant's code instead of the global prefix.
type AdminUserInput struct {
	LastName    string
	FirstName   string
	Title       string
	Institution string
	Phone       string
	Email       string
}

// RegisterByAdmin creates a visitor on behalf of a tenant
// administrator, with a tenant-scoped identifier.
func (s *EnrollmentService) RegisterByAdmin(ctx context.Context, tenant *domain.Tenant, input AdminUserInput) (*domain.User, error) {
	if input.LastName == "" {
		return nil, ErrLastNameRequired
	}
	if input.FirstName == "" {
		return nil, ErrFirstNameRequired
	}

	for attempt := 0; attempt < s.insertAttempts; attempt++ {
		identifier, err := s.allocator.AllocateTenantScopedCode(ctx, tenant.Code)
		if err != nil {
			return nil, err
		}

		user := &domain.User{
			TenantID:    tenant.ID,
			Identifier:  identifier,
			LastName:    input.LastName,
			FirstName:   input.FirstName,
			Title:       input.Title,
			Institution: input.Institution,
			Phone:       input.Phone,
			Email:       input.Email,
			Status:      domain.UserActive,
		}

		err = s.users.Create(ctx, user, nil)
		if err == nil {
			return user, nil
		}
		if errors.Is(err, store.ErrConflict) {
			if s.metrics != nil {
				s.metrics.IdentifierCollisions.Inc()
			}
			s.logger.Warn("identifier conflict at insert, retrying",
				zap.String("identifier", identifier),
				zap.Int("attempt", attempt+1))
			continue
		}
		return nil, err
	}
	return nil, ErrIdentifierExhausted
}

func (s *EnrollmentService) createWithRetry(ctx context.Context, form *domain.FormTemplate, input EnrollInput, values []domain.FieldValue) (*domain.User, error) {
	for attempt := 0; attempt < s.insertAttempts; attempt++ {
		identifier, err := s.allocator.AllocateVisitorIdentifier(ctx)
		if err != nil {
			return nil, err
		}

		user := &domain.User{
			TenantID:    form.TenantID,
			Identifier:  identifier,
			LastName:    input.LastName,
			FirstName:   input.FirstName,
			Title:       input.Title,
			Institution: input.Institution,
			Phone:       input.Phone,
			Email:       input.Email,
			Status:      domain.UserActive,
		}

		vals := make([]domain.FieldValue, len(values))
		copy(vals, values)

		err = s.users.Create(ctx, user, vals)
		if err == nil {
			return user, nil
		}
		if errors.Is(err, store.ErrConflict) {
			// Another enrollment won the same candidate between the
			// pre-check and the insert. Reallocate and retry.
			if s.metrics != nil {
				s.metrics.IdentifierCollisions.Inc()
			}
			s.logger.Warn("identifier conflict at insert, retrying",
				zap.String("identifier", identifier),
				zap.Int("attempt", attempt+1))
			continue
		}
		return nil, err
	}
	return nil, ErrIdentifierExhausted
}
