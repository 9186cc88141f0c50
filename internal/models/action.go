package models

import "time"

// Suggestion statuses
const (
	SuggestionPending  = "pending"
	SuggestionApproved = "approved"
	SuggestionDeclined = "declined"
)

// ActionTemplate defines a reusable chore with a point value.
// Negative points are penalties.
type ActionTemplate struct {
	ID          int64     `json:"id"`
	FamilyID    int64     `json:"familyId"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Points      float64   `json:"points"`
	CreatedBy   *int64    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ActionTemplatePatch holds the template fields supplied in a partial update
type ActionTemplatePatch struct {
	Name        *string
	Description *string
	Points      *float64
}

// AssignedAction is one dated occurrence of a template given to a child
type AssignedAction struct {
	ID               int64     `json:"id"`
	ActionTemplateID int64     `json:"actionTemplateId"`
	ChildID          int64     `json:"childId"`
	AssignedBy       *int64    `json:"assignedBy"`
	Quantity         int       `json:"quantity"`
	Description      *string   `json:"description"`
	Date             time.Time `json:"date"`
	Completed        bool      `json:"completed"`
	CreatedAt        time.Time `json:"createdAt"`
}

// AssignedActionPatch holds the assigned action fields supplied in a partial update
type AssignedActionPatch struct {
	ActionTemplateID *int64
	ChildID          *int64
	Quantity         *int
	Description      *string
	Date             *time.Time
	Completed        *bool
}

// AssignedActionDetail is an assigned action with its related rows resolved
type AssignedActionDetail struct {
	AssignedAction
	ActionTemplate *ActionTemplate `json:"actionTemplate"`
	AssignedByUser *User           `json:"assignedByUser"`
	Child          *User           `json:"child"`
	TotalPoints    float64         `json:"totalPoints"`
}

// ActionSuggestion is a child's proposal awaiting a parent's decision
type ActionSuggestion struct {
	ID               int64      `json:"id"`
	ActionTemplateID int64      `json:"actionTemplateId"`
	ChildID          int64      `json:"childId"`
	Quantity         int        `json:"quantity"`
	Description      *string    `json:"description"`
	Date             time.Time  `json:"date"`
	Status           string     `json:"status"`
	DecidedBy        *int64     `json:"decidedBy"`
	DecidedAt        *time.Time `json:"decidedAt"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// IsPending reports whether the suggestion is still awaiting a decision
func (s *ActionSuggestion) IsPending() bool {
	return s.Status == SuggestionPending
}

// ActionSuggestionDetail is a suggestion with its related rows resolved
type ActionSuggestionDetail struct {
	ActionSuggestion
	ActionTemplate *ActionTemplate `json:"actionTemplate"`
	Child          *User           `json:"child"`
	DecidedByUser  *User           `json:"decidedByUser"`
}

// ValidSuggestionStatus reports whether status is a known suggestion status
func ValidSuggestionStatus(status string) bool {
	switch status {
	case SuggestionPending, SuggestionApproved, SuggestionDeclined:
		return true
	}
	return false
}

// PointsFor returns the points an action is worth under the given template
func PointsFor(template *ActionTemplate, quantity int) float64 {
	if template == nil {
		return 0
	}
	return template.Points * float64(quantity)
}

// ApprovedSuggestion is the result of approving a suggestion: the decided
// suggestion and the assigned action it produced
type ApprovedSuggestion struct {
	ActionSuggestion
	AssignedAction *AssignedAction `json:"assignedAction"`
}
