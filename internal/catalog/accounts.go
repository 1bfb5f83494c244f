package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoAccounts is returned when a force initialization has nobody to
// schedule for.
var ErrNoAccounts = errors.New("at least one account is required")

var (
	fullAccountPattern = regexp.MustCompile(`^IB:U\d+$`)
	userAccountPattern = regexp.MustCompile(`^U\d+$`)
	digitsPattern      = regexp.MustCompile(`^\d+$`)
)

// NormalizeAccount turns "U1234567" and "1234567" into "IB:U1234567".
// Anything that is not one of those shapes or the full form is rejected.
func NormalizeAccount(s string) (string, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch {
	case s == "":
		return "", errors.New("account is empty")
	case fullAccountPattern.MatchString(s):
		return s, nil
	case userAccountPattern.MatchString(s):
		return "IB:" + s, nil
	case digitsPattern.MatchString(s):
		return "IB:U" + s, nil
	}
	return "", fmt.Errorf("invalid account %q: want IB:U<digits>, U<digits> or <digits>", s)
}

// NormalizeAccounts normalizes each account and drops duplicates, keeping
// first-seen order.
func NormalizeAccounts(raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	accounts := make([]string, 0, len(raw))
	for _, r := range raw {
		account, err := NormalizeAccount(r)
		if err != nil {
			return nil, err
		}
		if seen[account] {
			continue
		}
		seen[account] = true
		accounts = append(accounts, account)
	}
	return accounts, nil
}
