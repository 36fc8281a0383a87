// Package identity normalizes raw "Name <email>" author strings into
// canonical identities and groups identities into authors.
package identity

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/Sumatoshi-tech/typedna/pkg/faults"
)

// ErrParse is returned when an author string is not of the form "Name <email>".
var ErrParse = fmt.Errorf("%w: unparseable author identity", faults.ErrMalformedInput)

var aliasPattern = regexp.MustCompile(`^\s*([^<]+)<([^>]+)>\s*$`)

// AuthorIdentity is one name/email pair as it appears in commit metadata.
type AuthorIdentity struct {
	Name  string
	Email string
}

// Parse splits text into a name and an email. Surrounding whitespace of both
// parts is discarded.
func Parse(text string) (AuthorIdentity, error) {
	match := aliasPattern.FindStringSubmatch(text)
	if match == nil {
		return AuthorIdentity{}, fmt.Errorf("%w: %q", ErrParse, text)
	}

	return AuthorIdentity{
		Name:  strings.TrimSpace(match[1]),
		Email: strings.TrimSpace(match[2]),
	}, nil
}

// Shorthand returns the canonical "Name <email>" form.
func (id AuthorIdentity) Shorthand() string {
	return id.Name + " <" + id.Email + ">"
}

// String implements fmt.Stringer.
func (id AuthorIdentity) String() string {
	return id.Shorthand()
}

// Equal reports whether both identities share the same shorthand.
func (id AuthorIdentity) Equal(other AuthorIdentity) bool {
	return id.Shorthand() == other.Shorthand()
}

// Registry interns identities by shorthand. Each dataset load owns one
// Registry; it is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	instances map[string]*AuthorIdentity
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{instances: make(map[string]*AuthorIdentity)}
}

// Get parses text and returns the canonical instance for its shorthand.
// Inputs that differ only in whitespace resolve to the same pointer.
func (r *Registry) Get(text string) (*AuthorIdentity, error) {
	parsed, err := Parse(text)
	if err != nil {
		return nil, err
	}

	key := parsed.Shorthand()

	r.mu.RLock()
	id, ok := r.instances[key]
	r.mu.RUnlock()

	if ok {
		return id, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok = r.instances[key]; ok {
		return id, nil
	}

	id = &parsed
	r.instances[key] = id

	return id, nil
}

// Len returns the number of interned identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.instances)
}
