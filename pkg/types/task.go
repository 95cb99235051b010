package types

import "unicode/utf8"

// DefaultSentinelKey is the key used for records with an empty surname.
const DefaultSentinelKey Key = '#'

// Key selects a partition. It is a single character taken verbatim from
// the record's surname; no case folding is applied, so "smith" and "Smith"
// land in different partitions.
type Key rune

// String returns the key as a one-character string.
func (k Key) String() string {
	return string(rune(k))
}

// DeriveKey returns the first character of the surname, or sentinel when the
// surname is empty. Invalid UTF-8 yields utf8.RuneError as the key.
func DeriveKey(r Record, sentinel Key) Key {
	if r.Surname == "" {
		return sentinel
	}
	first, _ := utf8.DecodeRuneInString(r.Surname)
	return Key(first)
}

// Task is the unit of work carried from the producer to the consumers.
type Task struct {
	Key    Key
	Record Record
}
