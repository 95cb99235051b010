package types

import (
	"testing"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Record
		ok   bool
	}{
		{"four fields", "Smith John Allan 555-1234", Record{"Smith", "John", "Allan", "555-1234"}, true},
		{"empty surname", " John Allan 555-1234", Record{"", "John", "Allan", "555-1234"}, true},
		{"empty middle field", "Smith  Allan 555-1234", Record{"Smith", "", "Allan", "555-1234"}, true},
		{"crlf", "Smith John Allan 555-1234\r", Record{"Smith", "John", "Allan", "555-1234"}, true},
		{"two fields", "Lee Bruce", Record{}, false},
		{"three fields", "Lee Bruce Jun", Record{}, false},
		{"five fields", "Smith John Allan 555 1234", Record{}, false},
		{"trailing space", "Smith John Allan ", Record{}, false},
		{"empty line", "", Record{}, false},
		{"tab separated", "Smith\tJohn\tAllan\t555", Record{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRecord(tt.line)
			if ok != tt.ok {
				t.Fatalf("ParseRecord(%q) ok = %v, want %v", tt.line, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("ParseRecord(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestRecordLine(t *testing.T) {
	rec := Record{Surname: "Jones", Name: "Mary", Patronymic: "Ellen", Phone: "555-5678"}
	if got := string(rec.Line()); got != "Jones Mary Ellen 555-5678\n" {
		t.Errorf("unexpected line %q", got)
	}
}

func TestRecordEqualIsCaseSensitive(t *testing.T) {
	a := Record{"Smith", "John", "Allan", "1"}
	b := Record{"smith", "John", "Allan", "1"}
	if a.Equal(b) {
		t.Error("records differing in case must not be equal")
	}
	if !a.Equal(Record{"Smith", "John", "Allan", "1"}) {
		t.Error("identical records must be equal")
	}
}

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		surname string
		want    Key
	}{
		{"Smith", 'S'},
		{"smith", 's'},
		{"", '#'},
		{"Ёлкин", 'Ё'},
		{"1st", '1'},
	}
	for _, tt := range tests {
		if got := DeriveKey(Record{Surname: tt.surname, Phone: "1"}, DefaultSentinelKey); got != tt.want {
			t.Errorf("DeriveKey(%q) = %s, want %s", tt.surname, got, tt.want)
		}
	}

	if got := DeriveKey(Record{}, '_'); got != '_' {
		t.Errorf("custom sentinel ignored: got %s", got)
	}
}

// TestProperty_KeyIsSurnameInitial checks that a parsed record's key is the
// first character of its surname, or the sentinel when the surname is empty.
func TestProperty_KeyIsSurnameInitial(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("key is first rune of surname", prop.ForAll(
		func(surname, name, patronymic, phone string) bool {
			rec, ok := ParseRecord(surname + " " + name + " " + patronymic + " " + phone)
			if !ok {
				return phone == ""
			}
			key := DeriveKey(rec, DefaultSentinelKey)
			if surname == "" {
				return key == DefaultSentinelKey
			}
			first, _ := utf8.DecodeRuneInString(surname)
			return key == Key(first) && rec.String() == surname+" "+name+" "+patronymic+" "+phone
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
