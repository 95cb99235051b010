// Package types provides core data types for the splitter pipeline.
package types

import "strings"

// FieldCount is the number of space-separated fields in a record line.
const FieldCount = 4

// Record is a single contact entry.
type Record struct {
	// Surname selects the partition through its first character
	Surname string `json:"surname" yaml:"surname"`

	// Name is the given name
	Name string `json:"name" yaml:"name"`

	// Patronymic is the middle (father's) name
	Patronymic string `json:"patronymic" yaml:"patronymic"`

	// Phone is the contact number, kept as opaque text
	Phone string `json:"phone" yaml:"phone"`
}

// ParseRecord parses a line of the form "surname name patronymic phone".
// Fields are separated by exactly one space. Lines that do not split into
// four fields, or whose phone field is empty, are rejected.
// Empty surname, name or patronymic fields are accepted.
func ParseRecord(line string) (Record, bool) {
	line = strings.TrimSuffix(line, "\r")

	fields := strings.Split(line, " ")
	if len(fields) != FieldCount {
		return Record{}, false
	}
	if fields[3] == "" {
		return Record{}, false
	}

	return Record{
		Surname:    fields[0],
		Name:       fields[1],
		Patronymic: fields[2],
		Phone:      fields[3],
	}, true
}

// Equal reports whether two records match field by field (case-sensitive).
func (r Record) Equal(other Record) bool {
	return r == other
}

// String renders the record in canonical line form without a trailing newline.
func (r Record) String() string {
	return r.Surname + " " + r.Name + " " + r.Patronymic + " " + r.Phone
}

// Line renders the record as a newline-terminated partition line.
func (r Record) Line() []byte {
	return []byte(r.String() + "\n")
}
