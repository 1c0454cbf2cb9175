// Package student manages student records.
package student

import (
	"time"

	"recordhub/internal/core/id"
	"recordhub/internal/domain/filter"
)

// Student is a stored student record.
type Student struct {
	ID              id.ID     `db:"id"`
	RollNo          int64     `db:"roll_no"`
	FirstName       string    `db:"first_name"`
	LastName        string    `db:"last_name"`
	Email           string    `db:"email"`
	Mobile          string    `db:"mobile"`
	DOB             time.Time `db:"dob"`
	AddressBuilding string    `db:"address_building"`
	AddressStreet   string    `db:"address_street"`
	AddressPin      string    `db:"address_pin"`
	PasswordHash    string    `db:"password_hash"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// Table is the backing table of student records.
const Table = "students"

// Fields is the full allow-list of searchable student attributes.
// "name" is an alias of first_name.
func Fields() []filter.FieldSpec {
	return []filter.FieldSpec{
		{Name: "roll_no", Column: "roll_no", Kind: filter.FieldNumber},
		{Name: "first_name", Column: "first_name", Kind: filter.FieldText},
		{Name: "last_name", Column: "last_name", Kind: filter.FieldText},
		{Name: "name", Column: "first_name", Kind: filter.FieldText},
		{Name: "email", Column: "email", Kind: filter.FieldText},
		{Name: "mobile", Column: "mobile", Kind: filter.FieldText},
		{Name: "address_building", Column: "address_building", Kind: filter.FieldText},
		{Name: "address_street", Column: "address_street", Kind: filter.FieldText},
		{Name: "address_pin", Column: "address_pin", Kind: filter.FieldText},
		{Name: "dob", Column: "dob", Kind: filter.FieldDate},
	}
}

// Schema returns the student allow-list, optionally narrowed to names.
func Schema(names []string) (*filter.Schema, error) {
	return filter.MustSchema(Fields()...).Restrict(names)
}
