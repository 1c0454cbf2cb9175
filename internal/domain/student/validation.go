package student

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	"recordhub/internal/core/apperror"
	"recordhub/internal/domain/filter"
)

// MinAge is the minimum age of a registered student in years.
const MinAge = 15

var (
	namePattern     = regexp.MustCompile(`^[A-Za-z]+$`)
	mobilePattern   = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)
	buildingPattern = regexp.MustCompile(`^[A-Za-z0-9 ]+$`)
	streetPattern   = regexp.MustCompile(`^[a-z ]+$`)
	pinPattern      = regexp.MustCompile(`^[0-9]{6,}$`)
)

const passwordSpecials = "@$!%*?&"

// Address is the postal part of a student record.
type Address struct {
	Building string
	Street   string
	Pin      string
}

// Input is the mutable part of a student record as submitted by a client.
type Input struct {
	FirstName string
	LastName  string
	Email     string
	Mobile    string
	DOB       string
	Password  string
	Address   Address
}

// Mode selects which fields are validated.
type Mode int

const (
	ModeCreate Mode = iota
	// ModeUpdate skips email and password, which cannot change.
	ModeUpdate
)

// Normalize trims every field and lowercases the email.
func (in *Input) Normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Mobile = strings.TrimSpace(in.Mobile)
	in.DOB = strings.TrimSpace(in.DOB)
	in.Address.Building = strings.TrimSpace(in.Address.Building)
	in.Address.Street = strings.TrimSpace(in.Address.Street)
	in.Address.Pin = strings.TrimSpace(in.Address.Pin)
}

// Validate checks every field and reports all violations at once.
func (in Input) Validate(now time.Time, mode Mode) error {
	fields := map[string]string{}

	check := func(field, value string, re *regexp.Regexp, msg string) {
		switch {
		case value == "":
			fields[field] = "is required"
		case !re.MatchString(value):
			fields[field] = msg
		}
	}

	check("first_name", in.FirstName, namePattern, "must contain only letters")
	check("last_name", in.LastName, namePattern, "must contain only letters")
	check("mobile", in.Mobile, mobilePattern, "must be a valid phone number with country code")
	check("address.building", in.Address.Building, buildingPattern, "must be alphanumeric")
	check("address.street", in.Address.Street, streetPattern, "must contain only lowercase letters and spaces")
	check("address.pin", in.Address.Pin, pinPattern, "must be at least 6 digits")

	if in.DOB == "" {
		fields["dob"] = "is required"
	} else if dob, ok := filter.ParseDate(in.DOB); !ok || strings.Contains(in.DOB, "-") {
		fields["dob"] = "must be a valid date in dd/mm/yyyy format"
	} else if dob.AddDate(MinAge, 0, 0).After(now) {
		fields["dob"] = "student must be at least 15 years old"
	}

	if mode == ModeCreate {
		if in.Email == "" {
			fields["email"] = "is required"
		} else if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
			fields["email"] = "must be a valid email"
		}

		if msg := passwordProblem(in.Password); msg != "" {
			fields["password"] = msg
		}
	}

	if len(fields) > 0 {
		return apperror.NewValidation("invalid student data").WithDetail("fields", fields)
	}
	return nil
}

func passwordProblem(pw string) string {
	if pw == "" {
		return "is required"
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return "contains an unsupported character"
		}
	}
	if len(pw) < 8 || !upper || !lower || !digit || !special {
		return "must be at least 8 characters with upper, lower, digit and one of " + passwordSpecials
	}
	return ""
}

// apply copies validated input onto a record.
func (in Input) apply(s *Student) {
	dob, _ := filter.ParseDate(in.DOB)
	s.FirstName = in.FirstName
	s.LastName = in.LastName
	s.Mobile = in.Mobile
	s.DOB = dob
	s.AddressBuilding = in.Address.Building
	s.AddressStreet = in.Address.Street
	s.AddressPin = in.Address.Pin
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
