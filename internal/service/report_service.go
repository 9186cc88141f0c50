package service

import (
	"context"
	"time"

	"familypoints/internal/models"
	"familypoints/internal/repository"
)

// ReportService aggregates points over date windows
type ReportService struct {
	store repository.Store
	now   func() time.Time
}

// NewReportService creates a new report service
func NewReportService(store repository.Store) *ReportService {
	return &ReportService{store: store, now: time.Now}
}

// Points sums the completed points of a child of the caller's family in [start, end]
func (s *ReportService) Points(ctx context.Context, caller *models.User, childID int64, start, end time.Time) (*models.PointsReport, error) {
	if err := s.authorizeChild(ctx, caller, childID); err != nil {
		return nil, err
	}
	points, err := s.store.GetChildPointsForPeriod(ctx, childID, start, end)
	if err != nil {
		return nil, err
	}
	return &models.PointsReport{Points: points}, nil
}

// Actions lists every action of a child of the caller's family in [start, end]
func (s *ReportService) Actions(ctx context.Context, caller *models.User, childID int64, start, end time.Time) ([]models.AssignedActionDetail, error) {
	if err := s.authorizeChild(ctx, caller, childID); err != nil {
		return nil, err
	}
	return s.store.GetChildActionsForPeriod(ctx, childID, start, end)
}

// Summary reports the points of the current calendar week and month. With
// no childID it covers the caller when they are a child, else every child of
// the family. Pending suggestions are only counted for heads and parents.
func (s *ReportService) Summary(ctx context.Context, caller *models.User, childID *int64) (*models.Summary, error) {
	familyID, err := familyOf(caller)
	if err != nil {
		return nil, err
	}

	var children []int64
	switch {
	case childID != nil:
		if err := s.authorizeChild(ctx, caller, *childID); err != nil {
			return nil, err
		}
		children = []int64{*childID}
	case caller.IsChild():
		children = []int64{caller.ID}
	default:
		members, err := s.store.GetFamilyMembers(ctx, familyID)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			if m.IsChild() {
				children = append(children, m.ID)
			}
		}
	}

	now := s.now()
	weekStart, monthStart := periodStarts(now)

	summary := &models.Summary{}
	for _, id := range children {
		weekly, err := s.store.GetChildPointsForPeriod(ctx, id, weekStart, now)
		if err != nil {
			return nil, err
		}
		monthly, err := s.store.GetChildPointsForPeriod(ctx, id, monthStart, now)
		if err != nil {
			return nil, err
		}
		actions, err := s.store.GetChildActionsForPeriod(ctx, id, monthStart, now)
		if err != nil {
			return nil, err
		}
		summary.WeeklyPoints += weekly
		summary.MonthlyPoints += monthly
		for _, a := range actions {
			if a.Completed {
				summary.CompletedActions++
			}
		}
	}

	if !caller.IsChild() {
		pending, err := s.store.CountActionSuggestions(ctx, repository.SuggestionFilter{
			FamilyID: familyID,
			Status:   models.SuggestionPending,
		})
		if err != nil {
			return nil, err
		}
		summary.PendingSuggestions = pending
	}
	return summary, nil
}

// periodStarts returns Sunday 00:00 of the week and day 1 00:00 of the month
// containing now, in now's location
func periodStarts(now time.Time) (time.Time, time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := today.AddDate(0, 0, -int(today.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return weekStart, monthStart
}

// authorizeChild checks the requested member exists and belongs to the caller's family
func (s *ReportService) authorizeChild(ctx context.Context, caller *models.User, childID int64) error {
	child, err := s.store.GetUser(ctx, childID)
	if err != nil {
		return err
	}
	if !caller.SameFamily(child) {
		return ErrForbidden
	}
	return nil
}
