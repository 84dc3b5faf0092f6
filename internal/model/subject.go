package model

import "fmt"

// Subject is the closed set of subject tags a question can carry.
// Adding a subject means adding a constant here and a branch in ParseSubject.
type Subject int

const (
	SubjectMath Subject = iota + 1
	SubjectEnglish
)

// Subjects lists every known subject in reporting order.
var Subjects = []Subject{SubjectMath, SubjectEnglish}

// String returns the storage/wire form of the subject.
func (s Subject) String() string {
	switch s {
	case SubjectMath:
		return "MATH"
	case SubjectEnglish:
		return "ENGLISH"
	default:
		return fmt.Sprintf("Subject(%d)", int(s))
	}
}

// ParseSubject converts the storage form back into a Subject.
func ParseSubject(raw string) (Subject, error) {
	switch raw {
	case "MATH":
		return SubjectMath, nil
	case "ENGLISH":
		return SubjectEnglish, nil
	default:
		return 0, fmt.Errorf("unknown subject %q", raw)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Subject) MarshalText() ([]byte, error) {
	if _, err := ParseSubject(s.String()); err != nil {
		return nil, err
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Subject) UnmarshalText(text []byte) error {
	parsed, err := ParseSubject(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
