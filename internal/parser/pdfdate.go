package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParsePDFDate converts a PDF date string ("D:YYYYMMDDHHmmSSOHH'mm'") to
// RFC 3339. Every field after the year is optional. Input that does not
// follow the format is returned trimmed but otherwise unchanged.
func ParsePDFDate(raw string) string {
	s := strings.TrimSpace(raw)
	body := strings.TrimPrefix(s, "D:")
	if len(body) < 4 {
		return s
	}

	fields := []int{0, 1, 1, 0, 0, 0}
	widths := []int{4, 2, 2, 2, 2, 2}
	pos := 0
	for i, w := range widths {
		if pos+w > len(body) || !isDigits(body[pos:pos+w]) {
			if i == 0 {
				return s
			}
			break
		}
		n, _ := strconv.Atoi(body[pos : pos+w])
		fields[i] = n
		pos += w
	}

	loc := time.UTC
	if rest := body[pos:]; rest != "" {
		switch rest[0] {
		case 'Z':
		case '+', '-':
			digits := strings.NewReplacer("'", "", ":", "").Replace(rest[1:])
			if len(digits) < 2 || !isDigits(digits) {
				return s
			}
			hh, _ := strconv.Atoi(digits[:2])
			mm := 0
			if len(digits) >= 4 {
				mm, _ = strconv.Atoi(digits[2:4])
			}
			offset := hh*3600 + mm*60
			if rest[0] == '-' {
				offset = -offset
			}
			loc = time.FixedZone(fmt.Sprintf("%c%02d%02d", rest[0], hh, mm), offset)
		default:
			return s
		}
	}

	t := time.Date(fields[0], time.Month(fields[1]), fields[2], fields[3], fields[4], fields[5], 0, loc)
	if t.Month() != time.Month(fields[1]) || t.Day() != fields[2] {
		return s
	}
	return t.Format(time.RFC3339)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
