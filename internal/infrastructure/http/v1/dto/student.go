package dto

import (
	"time"

	"recordhub/internal/domain/filter"
	"recordhub/internal/domain/student"
)

// AddressRequest is the postal part of a student payload.
type AddressRequest struct {
	Building string `json:"building"`
	Street   string `json:"street"`
	Pin      string `json:"pin"`
}

// StudentRequest for creating and updating students.
// Field rules are checked by the domain so every violation is reported at once.
type StudentRequest struct {
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Email     string         `json:"email"`
	Mobile    string         `json:"mobile"`
	DOB       string         `json:"dob"`
	Password  string         `json:"password"`
	Address   AddressRequest `json:"address"`
}

// ToInput converts to domain input.
func (r *StudentRequest) ToInput() student.Input {
	return student.Input{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Mobile:    r.Mobile,
		DOB:       r.DOB,
		Password:  r.Password,
		Address: student.Address{
			Building: r.Address.Building,
			Street:   r.Address.Street,
			Pin:      r.Address.Pin,
		},
	}
}

// AddressResponse is the postal part of a student response.
type AddressResponse struct {
	Building string `json:"building"`
	Street   string `json:"street"`
	Pin      string `json:"pin"`
}

// StudentResponse never carries the password hash.
type StudentResponse struct {
	RollNo    int64           `json:"roll_no"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Email     string          `json:"email"`
	Mobile    string          `json:"mobile"`
	DOB       string          `json:"dob"`
	Address   AddressResponse `json:"address"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// FromStudent creates response from a domain student.
func FromStudent(s *student.Student) StudentResponse {
	return StudentResponse{
		RollNo:    s.RollNo,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Email:     s.Email,
		Mobile:    s.Mobile,
		DOB:       filter.FormatDate(s.DOB),
		Address: AddressResponse{
			Building: s.AddressBuilding,
			Street:   s.AddressStreet,
			Pin:      s.AddressPin,
		},
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// FromStudents maps a list of domain students.
func FromStudents(list []*student.Student) []StudentResponse {
	out := make([]StudentResponse, 0, len(list))
	for _, s := range list {
		out = append(out, FromStudent(s))
	}
	return out
}

// StudentListRequest binds the listing query.
type StudentListRequest struct {
	Search string `form:"search"`
	Limit  int    `form:"limit" binding:"min=0,max=500"`
	Offset int    `form:"offset" binding:"min=0"`
}

// ToParams converts to domain list params.
func (r *StudentListRequest) ToParams() student.ListParams {
	return student.ListParams{Search: r.Search, Limit: r.Limit, Offset: r.Offset}
}
