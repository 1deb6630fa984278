package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"lagoonstay/pkg/logger"
	"lagoonstay/pkg/model"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()

	if err := v.RegisterValidation("booking_date", validateBookingDate); err != nil {
		log.Fatal("Failed to register 'booking_date' validator",
			"error", err,
		)
	}

	log.Info("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func validateBookingDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(dateLayout, fl.Field().String())
	return err == nil
}

// ParseDate parses a stay-boundary date in YYYY-MM-DD form as UTC midnight.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(value))
}

func (v *BookingValidator) ValidateRequest(req *model.BookingRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	checkIn, err := ParseDate(req.CheckIn)
	if err != nil {
		return ValidationErrors{
			ValidationError{Field: "CheckIn", Message: "check_in must be a YYYY-MM-DD date"},
		}
	}
	checkOut, err := ParseDate(req.CheckOut)
	if err != nil {
		return ValidationErrors{
			ValidationError{Field: "CheckOut", Message: "check_out must be a YYYY-MM-DD date"},
		}
	}

	if !checkOut.After(checkIn) {
		return ValidationErrors{
			ValidationError{
				Field:   "CheckOut",
				Message: "check_out must be after check_in",
			},
		}
	}

	if req.GuestPhone != "" && digitCount(req.GuestPhone) < 6 {
		return ValidationErrors{
			ValidationError{
				Field:   "GuestPhone",
				Message: "guest_phone must contain at least 6 digits",
			},
		}
	}

	return nil
}

func (v *BookingValidator) ValidateMenuItem(item *model.MenuItem) error {
	if err := v.validate.Struct(item); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "booking_date":
			message = fmt.Sprintf("%s must be a YYYY-MM-DD date", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
