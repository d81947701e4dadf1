package validate

import "strings"

const MinPasswordLen = 6

// Strength is a warn-only assessment; only MinPasswordLen blocks submission.
type Strength struct {
	Score       int      `json:"score"` // 0..4
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions"`
}

// PasswordStrength scores pwd, penalizing passwords that contain one of the
// user's own inputs (username, name, email).
func PasswordStrength(pwd string, hints ...string) Strength {
	l := len(pwd)
	var hasL, hasU, hasD, hasS bool
	for _, r := range pwd {
		switch {
		case r >= 'a' && r <= 'z':
			hasL = true
		case r >= 'A' && r <= 'Z':
			hasU = true
		case r >= '0' && r <= '9':
			hasD = true
		default:
			hasS = true
		}
	}
	classes := 0
	for _, ok := range []bool{hasL, hasU, hasD, hasS} {
		if ok {
			classes++
		}
	}
	lower := strings.ToLower(pwd)
	for _, h := range hints {
		h = strings.ToLower(strings.TrimSpace(h))
		if len(h) >= 3 && strings.Contains(lower, h) && l < 16 {
			if classes > 1 {
				classes--
			}
			break
		}
	}
	switch {
	case l >= 14 && classes >= 3:
		return Strength{Score: 4}
	case l >= 12 && classes >= 3:
		return Strength{Score: 3, Suggestions: []string{"A 3-4 word passphrase is even better."}}
	case l >= 10 && classes >= 2:
		return Strength{Score: 2, Message: "Short or low variety.", Suggestions: []string{"Add length and mix letters, numbers and symbols."}}
	case l >= 8:
		return Strength{Score: 1, Message: "Too short or predictable.", Suggestions: []string{"Use 10-12+ characters of mixed types."}}
	default:
		return Strength{Score: 0, Message: "Very weak password.", Suggestions: []string{"Use 12+ characters with upper and lower case, numbers, symbols."}}
	}
}

// Weak reports whether a warning is worth showing.
func (s Strength) Weak() bool { return s.Score < 3 }
