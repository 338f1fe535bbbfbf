package ivr

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	_ "time/tzdata" // hours timezones must load on hosts without zoneinfo

	"github.com/go-playground/validator/v10"

	"github.com/nexora/backend/pkg/expression"
	appErrors "github.com/nexora/backend/pkg/errors"
)

var fieldValidator = newFieldValidator()

// conditions compiles and evaluates hours conditions
var conditions = expression.NewEngine()

func newFieldValidator() *validator.Validate {
	v := validator.New()
	// Report wire names ("queueName") rather than Go names ("QueueName")
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("dtmf", isDTMF); err != nil {
		panic(err)
	}
	return v
}

func isDTMF(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return len(s) == 1 && strings.ContainsAny(s, "0123456789*#")
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s item(s)", fe.Param())
	case "gte":
		return fmt.Sprintf("must be %s or greater", fe.Param())
	case "dtmf":
		return "must be a single keypad digit (0-9, * or #)"
	case "e164":
		return "must be an E.164 phone number such as +14155550100"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return fmt.Sprintf("failed '%s' check", fe.Tag())
	}
}

// ValidateConfig runs the field contracts of one node config.
// Paths are relative to the config object, e.g. "options[1].digit".
func ValidateConfig(cfg NodeConfig) []appErrors.FieldError {
	var out []appErrors.FieldError
	if cfg == nil {
		return out
	}
	if _, unknown := cfg.(*UnknownConfig); unknown {
		return out
	}

	if err := fieldValidator.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return append(out, appErrors.FieldError{Message: err.Error()})
		}
		for _, fe := range verrs {
			out = append(out, appErrors.FieldError{Path: relativePath(fe.Namespace()), Message: tagMessage(fe)})
		}
	}

	switch c := cfg.(type) {
	case *MenuConfig:
		out = append(out, validateMenu(c)...)
	case *HoursConfig:
		out = append(out, validateHours(c)...)
	}
	return out
}

// relativePath drops the struct name validator puts in front of a namespace
func relativePath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func validateMenu(c *MenuConfig) []appErrors.FieldError {
	var out []appErrors.FieldError
	seen := make(map[string]int, len(c.Options))
	for i, opt := range c.Options {
		if opt.Digit == "" {
			continue
		}
		if first, dup := seen[opt.Digit]; dup {
			out = append(out, appErrors.FieldError{
				Path:    fmt.Sprintf("options[%d].digit", i),
				Message: fmt.Sprintf("duplicate digit '%s' (already used by option %d)", opt.Digit, first),
			})
			continue
		}
		seen[opt.Digit] = i
	}
	return out
}

func validateHours(c *HoursConfig) []appErrors.FieldError {
	var out []appErrors.FieldError
	if _, err := loadLocation(c.Timezone); err != nil {
		out = append(out, appErrors.FieldError{Path: "timezone", Message: fmt.Sprintf("unknown timezone '%s'", c.Timezone)})
	}

	for _, day := range c.ScheduleDays() {
		h := c.Schedule[day]
		path := "schedule." + day
		if !isWeekday(day) {
			out = append(out, appErrors.FieldError{Path: path, Message: "must be a weekday name (monday..sunday)"})
			continue
		}
		start, errStart := parseClock(h.Start)
		end, errEnd := parseEndClock(h.End)
		if errStart != nil {
			out = append(out, appErrors.FieldError{Path: path + ".start", Message: "must be a time in HH:MM format"})
		}
		if errEnd != nil {
			out = append(out, appErrors.FieldError{Path: path + ".end", Message: "must be a time in HH:MM format (24:00 for midnight)"})
		}
		if errStart == nil && errEnd == nil && !start.Before(end) {
			out = append(out, appErrors.FieldError{Path: path, Message: "start must be before end"})
		}
	}

	if c.Condition != "" {
		if err := conditions.Validate(c.Condition, conditionEnv(time.Time{}, "")); err != nil {
			out = append(out, appErrors.FieldError{Path: "condition", Message: "does not compile: " + err.Error()})
		}
	}
	return out
}

func loadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(tz)
}

func parseClock(s string) (time.Time, error) {
	if len(s) != 5 {
		return time.Time{}, fmt.Errorf("invalid clock %q", s)
	}
	return time.Parse("15:04", s)
}

const endOfDay = "24:00"

// parseEndClock also accepts "24:00", the end of the day
func parseEndClock(s string) (time.Time, error) {
	if s == endOfDay {
		t, _ := time.Parse("15:04", "00:00")
		return t.Add(24 * time.Hour), nil
	}
	return parseClock(s)
}

// conditionEnv is the variable set an hours condition can reference
func conditionEnv(at time.Time, caller string) map[string]interface{} {
	return map[string]interface{}{
		"hour":    at.Hour(),
		"minute":  at.Minute(),
		"time":    at.Format("15:04"),
		"weekday": strings.ToLower(at.Weekday().String()),
		"date":    at.Format("2006-01-02"),
		"caller":  caller,
	}
}
