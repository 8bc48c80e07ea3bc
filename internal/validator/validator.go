package validator

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	models "github.com/raildesk/raildesk/internal"
)

var (
	stationNamePattern   = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	passengerNamePattern = regexp.MustCompile(`^[a-zA-Z\s]+$`)
)

type CustomValidator struct {
	validator *validator.Validate
}

func NewCustomValidator() *CustomValidator {
	v := validator.New()
	v.RegisterValidation("station_name", validateStationName)
	v.RegisterValidation("passenger_name", validatePassengerName)
	v.RegisterValidation("gender", validateGender)
	v.RegisterValidation("journey_date", validateJourneyDate)

	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// SearchErrors validates search criteria and maps failures onto the exact
// messages the search form shows.
func (cv *CustomValidator) SearchErrors(criteria models.SearchCriteria) map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(criteria.Source) == "" || strings.TrimSpace(criteria.Destination) == "" || criteria.Date == "" {
		errs["form"] = "Please fill in all fields."
		return errs
	}
	if !stationNamePattern.MatchString(strings.TrimSpace(criteria.Source)) {
		errs["source"] = "Source station must contain only letters and spaces."
	}
	if !stationNamePattern.MatchString(strings.TrimSpace(criteria.Destination)) {
		errs["destination"] = "Destination station must contain only letters and spaces."
	}
	if _, err := time.Parse("2006-01-02", criteria.Date); err != nil {
		errs["date"] = "Please enter a valid journey date."
	}
	return errs
}

// PassengerErrors validates every draft and reports the first failing field
// per passenger, keyed "passenger-<index>-<field>". An empty map means the
// whole form may be submitted; any entry blocks submission entirely.
func (cv *CustomValidator) PassengerErrors(drafts []models.PassengerDraft) map[string]string {
	errs := map[string]string{}
	for i, d := range drafts {
		switch {
		case !validName(d.Name):
			errs[fmt.Sprintf("passenger-%d-name", i)] = "Name must be at least 2 characters and contain only letters."
		case d.Age < 1 || d.Age > 120:
			errs[fmt.Sprintf("passenger-%d-age", i)] = "Please enter a valid age (1-120)."
		case strings.TrimSpace(d.Gender) == "":
			errs[fmt.Sprintf("passenger-%d-gender", i)] = "Please select a gender."
		}
	}
	return errs
}

func validName(name string) bool {
	trimmed := strings.TrimSpace(name)
	return len(trimmed) >= 2 && passengerNamePattern.MatchString(trimmed)
}

func validateStationName(fl validator.FieldLevel) bool {
	name := strings.TrimSpace(fl.Field().String())
	return name != "" && stationNamePattern.MatchString(name)
}

func validatePassengerName(fl validator.FieldLevel) bool {
	return validName(fl.Field().String())
}

func validateGender(fl validator.FieldLevel) bool {
	supported := map[string]bool{
		"male":   true,
		"female": true,
		"other":  true,
	}
	return supported[strings.ToLower(fl.Field().String())]
}

func validateJourneyDate(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}
