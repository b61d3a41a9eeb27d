package app

import (
	"strings"

	"github.com/UserDirectory/internal/domain"
)

// Filter returns the users whose name contains term, ignoring case.
// A blank term returns users unchanged. Any other term is matched as
// given, spaces included.
func Filter(users []domain.User, term string) []domain.User {
	if strings.TrimSpace(term) == "" {
		return users
	}

	needle := strings.ToLower(term)
	matched := make([]domain.User, 0, len(users))
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Name), needle) {
			matched = append(matched, u)
		}
	}
	return matched
}
