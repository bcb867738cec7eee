package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/assettrack/backend/internal/apperr"
	"github.com/assettrack/backend/internal/models"
)

// PlanInput carries the writable plan fields.
type PlanInput struct {
	Title        string           `json:"title"`
	ScopeType    models.ScopeType `json:"scope_type"`
	ScopePayload json.RawMessage  `json:"scope_payload,omitempty"`
	StartDate    *time.Time       `json:"start_date,omitempty"`
	EndDate      *time.Time       `json:"end_date,omitempty"`
}

// PlanUpdate carries a partial plan update; nil fields are left untouched.
type PlanUpdate struct {
	Title        *string            `json:"title,omitempty"`
	ScopeType    *models.ScopeType  `json:"scope_type,omitempty"`
	ScopePayload json.RawMessage    `json:"scope_payload,omitempty"`
	StartDate    *time.Time         `json:"start_date,omitempty"`
	EndDate      *time.Time         `json:"end_date,omitempty"`
	Status       *models.PlanStatus `json:"status,omitempty"`
}

func validScopeType(t models.ScopeType) bool {
	switch t {
	case models.ScopeLocation, models.ScopeDepartment, models.ScopeCustom:
		return true
	}
	return false
}

func validPlanStatus(s models.PlanStatus) bool {
	switch s {
	case models.PlanDraft, models.PlanScheduled, models.PlanActive, models.PlanClosed, models.PlanCanceled:
		return true
	}
	return false
}

// CreatePlan stores a new draft plan owned by createdBy.
func (s *Service) CreatePlan(ctx context.Context, in PlanInput, createdBy int64) (*models.Plan, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.Validation("title_required")
	}
	if !validScopeType(in.ScopeType) {
		return nil, apperr.Validation("invalid_scope_type")
	}
	now := s.now()
	p := &models.Plan{
		Title:        strings.TrimSpace(in.Title),
		ScopeType:    in.ScopeType,
		ScopePayload: in.ScopePayload,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		Status:       models.PlanDraft,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreatePlan(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdatePlan applies a partial update to an existing plan.
func (s *Service) UpdatePlan(ctx context.Context, id int64, upd PlanUpdate) (*models.Plan, error) {
	p, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, "plan_not_found")
	}
	if upd.Title != nil {
		if strings.TrimSpace(*upd.Title) == "" {
			return nil, apperr.Validation("title_required")
		}
		p.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.ScopeType != nil {
		if !validScopeType(*upd.ScopeType) {
			return nil, apperr.Validation("invalid_scope_type")
		}
		p.ScopeType = *upd.ScopeType
	}
	if upd.ScopePayload != nil {
		p.ScopePayload = upd.ScopePayload
	}
	if upd.StartDate != nil {
		p.StartDate = upd.StartDate
	}
	if upd.EndDate != nil {
		p.EndDate = upd.EndDate
	}
	if upd.Status != nil {
		if !validPlanStatus(*upd.Status) {
			return nil, apperr.Validation("invalid_plan_status")
		}
		p.Status = *upd.Status
	}
	p.UpdatedAt = s.now()
	if err := s.store.UpdatePlan(ctx, p); err != nil {
		return nil, mapStoreErr(err, "plan_not_found")
	}
	return p, nil
}

// GetPlan fetches one plan.
func (s *Service) GetPlan(ctx context.Context, id int64) (*models.Plan, error) {
	p, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, "plan_not_found")
	}
	return p, nil
}

// ListPlans pages over plans, newest first.
func (s *Service) ListPlans(ctx context.Context, limit, offset int) ([]models.Plan, error) {
	limit, offset = clampPage(limit, offset)
	return s.store.ListPlans(ctx, limit, offset)
}

// clampPage bounds pagination: limit into [1, 500], offset to >= 0.
func clampPage(limit, offset int) (int, int) {
	if limit < 1 {
		limit = 1
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
