package roster

import (
	"bufio"
	"io"
	"strings"
)

// Entry is one parsed roster row: a student name and their course.
type Entry struct {
	Name   string
	Course string
}

// Parse reads newline-delimited `name,course` text and returns the valid
// entries. Blank lines and lines with fewer than two fields are skipped, as
// is a header line matching the column labels case-insensitively. Fields
// are trimmed; a row needs both fields non-empty to count.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, ",", 2)
		if len(parts) < 2 {
			continue
		}

		name := strings.TrimSpace(parts[0])
		course := strings.TrimSpace(parts[1])
		if name == "" || course == "" {
			continue
		}
		if strings.EqualFold(name, "nombre") && strings.EqualFold(course, "curso") {
			continue
		}

		entries = append(entries, Entry{Name: name, Course: course})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
