package store

import (
	"strconv"
	"strings"
	"unicode"
)

// DefaultDepartmentPrefixes are the counters known to the admissions office.
var DefaultDepartmentPrefixes = map[string]string{
	"Admissions": "AD",
	"Registrar":  "RE",
	"Accounting": "AC",
}

// Departments resolves queue number prefixes for department names.
type Departments struct {
	prefixes map[string]string
}

func NewDepartments(prefixes map[string]string) Departments {
	if len(prefixes) == 0 {
		prefixes = DefaultDepartmentPrefixes
	}
	table := make(map[string]string, len(prefixes))
	for name, prefix := range prefixes {
		name = strings.TrimSpace(name)
		prefix = strings.ToUpper(strings.TrimSpace(prefix))
		if name == "" || prefix == "" {
			continue
		}
		table[name] = prefix
	}
	return Departments{prefixes: table}
}

// Prefix returns the queue number prefix for a department. Unknown
// departments use the first two characters of their name, upper-cased.
func (d Departments) Prefix(department string) (string, error) {
	department = strings.TrimSpace(department)
	if department == "" {
		return "", ValidationError("department is required")
	}
	if prefix, ok := d.prefixes[department]; ok {
		return prefix, nil
	}
	runes := []rune(department)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return strings.ToUpper(string(runes)), nil
}

// Known reports whether the department has an explicit prefix entry.
func (d Departments) Known(department string) bool {
	_, ok := d.prefixes[strings.TrimSpace(department)]
	return ok
}

// ParseSequence extracts the numeric suffix of a queue number. Queue numbers
// must be compared through this value: "AD10" sorts before "AD9" as text.
func ParseSequence(prefix, queueNumber string) (int, bool) {
	queueNumber = strings.TrimSpace(queueNumber)
	if prefix == "" || !strings.HasPrefix(strings.ToUpper(queueNumber), prefix) {
		return 0, false
	}
	digits := queueNumber[len(prefix):]
	end := strings.IndexFunc(digits, func(r rune) bool { return !unicode.IsDigit(r) })
	if end >= 0 {
		digits = digits[:end]
	}
	if digits == "" {
		return 0, false
	}
	value, err := strconv.Atoi(digits)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

// MaxSequence returns the highest parsable sequence among queueNumbers, or 0.
func MaxSequence(prefix string, queueNumbers []string) int {
	highest := 0
	for _, number := range queueNumbers {
		if value, ok := ParseSequence(prefix, number); ok && value > highest {
			highest = value
		}
	}
	return highest
}

func FormatQueueNumber(prefix string, sequence int) string {
	return prefix + strconv.Itoa(sequence)
}
