package match

import "strings"

// Soundex returns the American Soundex code of a single token, e.g.
// "Robert" -> "R163". Accents are stripped first; non-ASCII runes are
// skipped. Empty or letterless input yields "".
func Soundex(token string) string {
	s := strings.ToUpper(StripAccents(token))
	var first byte
	digits := make([]byte, 0, 3)
	var last byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 'A' || c > 'Z' {
			continue
		}
		d := soundexDigit(c)
		if first == 0 {
			first = c
			last = d
			continue
		}
		switch d {
		case 0: // vowels and y reset the run so repeats recode
			last = 0
		case skipLetter: // h and w are transparent
		default:
			if d != last && len(digits) < 3 {
				digits = append(digits, d)
			}
			last = d
		}
	}
	if first == 0 {
		return ""
	}
	out := make([]byte, 4)
	out[0] = first
	copy(out[1:], digits)
	for i := 1 + len(digits); i < 4; i++ {
		out[i] = '0'
	}
	return string(out)
}

const skipLetter = 0xff

func soundexDigit(c byte) byte {
	switch c {
	case 'B', 'F', 'P', 'V':
		return '1'
	case 'C', 'G', 'J', 'K', 'Q', 'S', 'X', 'Z':
		return '2'
	case 'D', 'T':
		return '3'
	case 'L':
		return '4'
	case 'M', 'N':
		return '5'
	case 'R':
		return '6'
	case 'H', 'W':
		return skipLetter
	default: // a e i o u y
		return 0
	}
}

// SoundexTokens codes each token and joins the results with spaces,
// dropping tokens that produce no code.
func SoundexTokens(tokens []string) string {
	var codes []string
	for _, t := range tokens {
		if c := Soundex(t); c != "" {
			codes = append(codes, c)
		}
	}
	return strings.Join(codes, " ")
}
