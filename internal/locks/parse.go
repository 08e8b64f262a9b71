package locks

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/brianly1003/lfsdesk/internal/domain"
)

// idMarker prefixes the lock id token in `git lfs locks` output.
const idMarker = "ID:"

// ParseLine parses one line of `git lfs locks` output.
//
// git lfs prints "<path><padding>\t<owner>\tID:<digits>". Tab separated lines
// are split on tabs, so owners and paths may contain spaces. Lines without tabs
// fall back to whitespace splitting: the id is the last token, the owner the
// one before it, and everything ahead of the owner is the path.
func ParseLine(line string) (string, Entry, error) {
	trimmed := strings.TrimSpace(line)

	var path, owner, idToken string
	if strings.Contains(trimmed, "\t") {
		fields := strings.Split(trimmed, "\t")
		if len(fields) != 3 {
			return "", Entry{}, malformed(line, "expected path, owner and id columns")
		}
		path = strings.TrimSpace(fields[0])
		owner = strings.TrimSpace(fields[1])
		idToken = strings.TrimSpace(fields[2])
	} else {
		var rest string
		var ok bool
		idToken, rest, ok = cutLastField(trimmed)
		if !ok {
			return "", Entry{}, malformed(line, "missing id")
		}
		owner, path, _ = cutLastField(rest)
	}

	if !strings.HasPrefix(idToken, idMarker) {
		return "", Entry{}, malformed(line, "id token lacks "+idMarker+" marker")
	}
	digits := idToken[len(idMarker):]
	if digits == "" || strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return "", Entry{}, malformed(line, "id is not numeric")
	}
	id, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return "", Entry{}, malformed(line, err.Error())
	}

	if path == "" || owner == "" {
		return "", Entry{}, malformed(line, "missing path or owner")
	}

	return path, Entry{Owner: owner, ID: id}, nil
}

// ParseListing parses every non-blank line. Malformed lines are returned
// separately so the caller can log them; they never abort the listing.
func ParseListing(lines []string) (map[string]Entry, []string) {
	entries := make(map[string]Entry, len(lines))
	var skipped []string

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		path, entry, err := ParseLine(line)
		if err != nil {
			skipped = append(skipped, line)
			continue
		}
		entries[path] = entry
	}

	return entries, skipped
}

// cutLastField splits s at its last whitespace run.
func cutLastField(s string) (last, rest string, ok bool) {
	idx := strings.LastIndexFunc(s, unicode.IsSpace)
	if idx < 0 {
		return "", "", false
	}
	last = s[idx+1:]
	rest = strings.TrimRightFunc(s[:idx], unicode.IsSpace)
	return last, rest, last != "" && rest != ""
}

func malformed(line, reason string) error {
	return fmt.Errorf("%w: %q: %s", domain.ErrMalformedLockLine, line, reason)
}
