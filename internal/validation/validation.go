package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"familypoints/internal/models"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._\-]+$`)
)

// ValidationError represents a validation error on a single field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors collects every field error found in a request
type Errors []ValidationError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, err := range e {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}

// Add records err when it is non-nil
func (e *Errors) Add(err error) {
	if err == nil {
		return
	}
	if ve, ok := err.(ValidationError); ok {
		*e = append(*e, ve)
		return
	}
	*e = append(*e, ValidationError{Field: "request", Message: err.Error()})
}

// Err returns nil when no errors were recorded
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateOptionalEmail accepts nil or an empty string
func ValidateOptionalEmail(email *string) error {
	if email == nil || strings.TrimSpace(*email) == "" {
		return nil
	}
	return ValidateEmail(*email)
}

// ValidateUsername checks length (3-50) and allowed characters
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	switch {
	case n == 0:
		return ValidationError{Field: "username", Message: "username is required"}
	case n < 3:
		return ValidationError{Field: "username", Message: "username must be at least 3 characters"}
	case n > 50:
		return ValidationError{Field: "username", Message: "username must be at most 50 characters"}
	case !usernameRegex.MatchString(username):
		return ValidationError{Field: "username", Message: "username may only contain letters, digits, dots, dashes and underscores"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < 6 {
		return ValidationError{Field: "password", Message: "password must be at least 6 characters"}
	}
	return nil
}

// ValidateName checks if a name is valid
func ValidateName(name string) error {
	return validateLength("name", name, 2, 100)
}

// ValidateFamilyName checks the name given to a new family
func ValidateFamilyName(name string) error {
	return validateLength("familyName", name, 2, 100)
}

func validateLength(field, value string, min, max int) error {
	value = strings.TrimSpace(value)
	n := utf8.RuneCountInString(value)
	if n == 0 {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	if n < min {
		return ValidationError{Field: field, Message: fmt.Sprintf("%s must be at least %d characters", field, min)}
	}
	if n > max {
		return ValidationError{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", field, max)}
	}
	return nil
}

// ValidateInvitationRole accepts the roles an invitation can grant
func ValidateInvitationRole(role string) error {
	if !models.ValidInvitationRole(role) {
		return ValidationError{Field: "role", Message: "role must be parent or child"}
	}
	return nil
}

// ValidatePoints rejects NaN and infinite values. Negative points are penalties.
func ValidatePoints(points *float64) error {
	if points == nil {
		return ValidationError{Field: "points", Message: "points is required"}
	}
	if math.IsNaN(*points) || math.IsInf(*points, 0) {
		return ValidationError{Field: "points", Message: "points must be a finite number"}
	}
	return nil
}

// ValidateQuantity requires a whole number of at least one
func ValidateQuantity(quantity int) error {
	if quantity < 1 {
		return ValidationError{Field: "quantity", Message: "quantity must be at least 1"}
	}
	return nil
}

// ValidateRegister checks a registration request. Exactly one of familyName
// and invitationToken must be supplied.
func ValidateRegister(req models.RegisterRequest) error {
	var errs Errors
	errs.Add(ValidateUsername(req.Username))
	errs.Add(ValidatePassword(req.Password))
	errs.Add(ValidateName(req.Name))
	errs.Add(ValidateOptionalEmail(req.Email))
	if req.InvitationToken == "" {
		errs.Add(ValidateFamilyName(req.FamilyName))
	}
	return errs.Err()
}

// ValidateLogin requires both credentials
func ValidateLogin(req models.LoginRequest) error {
	var errs Errors
	if req.Username == "" {
		errs.Add(ValidationError{Field: "username", Message: "username is required"})
	}
	if req.Password == "" {
		errs.Add(ValidationError{Field: "password", Message: "password is required"})
	}
	return errs.Err()
}

// ValidateProfile checks the supplied fields of a profile update
func ValidateProfile(req models.ProfileRequest) error {
	var errs Errors
	if req.Name != nil {
		errs.Add(ValidateName(*req.Name))
	}
	errs.Add(ValidateOptionalEmail(req.Email))
	if req.NewPassword != nil {
		if err := ValidatePassword(*req.NewPassword); err != nil {
			errs.Add(ValidationError{Field: "newPassword", Message: err.(ValidationError).Message})
		}
		if req.CurrentPassword == "" {
			errs.Add(ValidationError{Field: "currentPassword", Message: "current password is required to set a new one"})
		}
	}
	return errs.Err()
}

func ValidateInvitation(req models.InvitationRequest) error {
	var errs Errors
	errs.Add(ValidateEmail(req.Email))
	errs.Add(ValidateInvitationRole(req.Role))
	return errs.Err()
}

func ValidateActionTemplate(req models.ActionTemplateRequest) error {
	var errs Errors
	errs.Add(validateLength("name", req.Name, 1, 100))
	errs.Add(ValidatePoints(req.Points))
	return errs.Err()
}

func ValidateActionTemplatePatch(req models.ActionTemplatePatchRequest) error {
	var errs Errors
	if req.Name != nil {
		errs.Add(validateLength("name", *req.Name, 1, 100))
	}
	if req.Points != nil {
		errs.Add(ValidatePoints(req.Points))
	}
	return errs.Err()
}

func ValidateAssignedAction(req models.AssignedActionRequest) error {
	var errs Errors
	if req.ActionTemplateID <= 0 {
		errs.Add(ValidationError{Field: "actionTemplateId", Message: "actionTemplateId is required"})
	}
	if req.ChildID <= 0 {
		errs.Add(ValidationError{Field: "childId", Message: "childId is required"})
	}
	if req.Quantity != nil {
		errs.Add(ValidateQuantity(*req.Quantity))
	}
	if req.Date == nil || req.Date.IsZero() {
		errs.Add(ValidationError{Field: "date", Message: "date is required"})
	}
	return errs.Err()
}

func ValidateAssignedActionPatch(req models.AssignedActionPatchRequest) error {
	var errs Errors
	if req.ActionTemplateID != nil && *req.ActionTemplateID <= 0 {
		errs.Add(ValidationError{Field: "actionTemplateId", Message: "actionTemplateId must be positive"})
	}
	if req.ChildID != nil && *req.ChildID <= 0 {
		errs.Add(ValidationError{Field: "childId", Message: "childId must be positive"})
	}
	if req.Quantity != nil {
		errs.Add(ValidateQuantity(*req.Quantity))
	}
	return errs.Err()
}

func ValidateActionSuggestion(req models.ActionSuggestionRequest) error {
	var errs Errors
	if req.ActionTemplateID <= 0 {
		errs.Add(ValidationError{Field: "actionTemplateId", Message: "actionTemplateId is required"})
	}
	if req.Quantity != nil {
		errs.Add(ValidateQuantity(*req.Quantity))
	}
	if req.Date == nil || req.Date.IsZero() {
		errs.Add(ValidationError{Field: "date", Message: "date is required"})
	}
	return errs.Err()
}
