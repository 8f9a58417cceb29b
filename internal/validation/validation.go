package validation

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kjstillabower/pws-history-proxy/internal/models"
)

// ErrStationIDEmpty is returned when stationId is empty or whitespace-only after trim.
var ErrStationIDEmpty = errors.New("stationId is required")

// ErrDateInvalid is returned when date is not exactly eight digits (YYYYMMDD).
var ErrDateInvalid = errors.New("date must be YYYYMMDD")

// DefaultUnits is forwarded upstream when the caller sends no units.
const DefaultUnits = "m"

var dateRe = regexp.MustCompile(`^\d{8}$`)

// historyParams carries the validator rules. Field order is the fail-fast order.
type historyParams struct {
	StationID string `validate:"required"`
	Date      string `validate:"yyyymmdd"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("yyyymmdd", isYYYYMMDD); err != nil {
		panic(err)
	}
	return v
}

func isYYYYMMDD(fl validator.FieldLevel) bool {
	return IsYYYYMMDD(fl.Field().String())
}

// IsYYYYMMDD reports whether s is exactly eight ASCII digits.
func IsYYYYMMDD(s string) bool {
	return dateRe.MatchString(s)
}

// ValidateHistoryQuery trims stationId and date, checks stationId first and date second,
// and defaults units to "m". Units are otherwise forwarded untouched.
// Returns ErrStationIDEmpty or ErrDateInvalid for 400 responses.
func ValidateHistoryQuery(stationID, date, units string) (models.HistoryQuery, error) {
	p := historyParams{
		StationID: strings.TrimSpace(stationID),
		Date:      strings.TrimSpace(date),
	}
	if err := validate.Struct(p); err != nil {
		return models.HistoryQuery{}, mapValidationError(err)
	}
	if units == "" {
		units = DefaultUnits
	}
	return models.HistoryQuery{StationID: p.StationID, Date: p.Date, Units: units}, nil
}

// mapValidationError returns the sentinel for the first failing field.
func mapValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	switch verrs[0].Field() {
	case "StationID":
		return ErrStationIDEmpty
	default:
		return ErrDateInvalid
	}
}

// IsValidationError reports whether err is one of the 400-class query errors.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrStationIDEmpty) || errors.Is(err, ErrDateInvalid)
}

// DateFromInput converts a browser date input value (YYYY-MM-DD) to YYYYMMDD.
// Values without dashes pass through trimmed.
func DateFromInput(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "-", "")
}
