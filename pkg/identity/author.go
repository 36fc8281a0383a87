package identity

import (
	"slices"
	"strings"
)

// Author is one real person, identified by a primary identity and owning
// any number of secondary aliases.
type Author struct {
	Primary *AuthorIdentity
	aliases map[string]*AuthorIdentity
}

// NewAuthor creates an Author whose only identity is primary.
func NewAuthor(primary *AuthorIdentity) *Author {
	return &Author{
		Primary: primary,
		aliases: make(map[string]*AuthorIdentity),
	}
}

// Name returns the primary identity's name.
func (a *Author) Name() string { return a.Primary.Name }

// Email returns the primary identity's email.
func (a *Author) Email() string { return a.Primary.Email }

// ID returns a string suitable for mapping back to the author.
func (a *Author) ID() string { return a.Primary.Shorthand() }

// Aliases returns the secondary identities sorted by shorthand.
func (a *Author) Aliases() []*AuthorIdentity {
	out := make([]*AuthorIdentity, 0, len(a.aliases))
	for _, id := range a.aliases {
		out = append(out, id)
	}

	slices.SortFunc(out, func(x, y *AuthorIdentity) int {
		return strings.Compare(x.Shorthand(), y.Shorthand())
	})

	return out
}

func (a *Author) isPrimary(id *AuthorIdentity) bool {
	return a.Primary.Shorthand() == id.Shorthand()
}
