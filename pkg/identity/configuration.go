package identity

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/typedna/pkg/faults"
)

// Configuration errors.
var (
	ErrUnknownAuthor = fmt.Errorf("%w: author not known", faults.ErrInvariant)
	ErrAliasMapped   = fmt.Errorf("%w: alias already mapped", faults.ErrInvariant)
	ErrPrimaryAlias  = fmt.Errorf("%w: cannot detach a primary identity", faults.ErrInvariant)
)

// ConfigurationFile is the on-disk form of a Configuration: alias shorthand
// to primary shorthand, and the primary shorthands shown by default.
type ConfigurationFile struct {
	Aliases map[string]string `json:"aliases" toml:"aliases" yaml:"aliases"`
	Enabled []string          `json:"enabled" toml:"enabled" yaml:"enabled"`
}

// Configuration maps identities onto authors many-to-one and tracks which
// authors are enabled for display.
type Configuration struct {
	registry *Registry
	aliases  map[string]*Author
	known    []*Author
	enabled  map[*Author]bool
}

// NewConfiguration builds a Configuration from file, interning every
// identity through registry.
func NewConfiguration(registry *Registry, file ConfigurationFile) (*Configuration, error) {
	cfg := &Configuration{
		registry: registry,
		aliases:  make(map[string]*Author),
		enabled:  make(map[*Author]bool),
	}

	aliasNames := make([]string, 0, len(file.Aliases))
	for alias := range file.Aliases {
		aliasNames = append(aliasNames, alias)
	}

	// Map iteration order must not leak into the author order.
	slices.Sort(aliasNames)

	for _, aliasName := range aliasNames {
		err := cfg.mapTo(aliasName, file.Aliases[aliasName])
		if err != nil {
			return nil, err
		}
	}

	for _, name := range file.Enabled {
		author, err := cfg.AuthorByName(name)
		if err != nil {
			return nil, err
		}

		cfg.Enable(author)
	}

	return cfg, nil
}

// Track makes sure every identity has an author, creating singletons for
// identities the configuration file did not mention.
func (c *Configuration) Track(ids ...*AuthorIdentity) {
	for _, id := range ids {
		c.vivify(id)
	}
}

// Authors returns every known author in creation order.
func (c *Configuration) Authors() []*Author {
	return slices.Clone(c.known)
}

// Aliases returns every mapped identity sorted case-insensitively by shorthand.
func (c *Configuration) Aliases() []*AuthorIdentity {
	out := make([]*AuthorIdentity, 0, len(c.aliases))

	for _, author := range c.known {
		out = append(out, author.Primary)
		out = append(out, author.Aliases()...)
	}

	slices.SortFunc(out, func(a, b *AuthorIdentity) int {
		return strings.Compare(strings.ToLower(a.Shorthand()), strings.ToLower(b.Shorthand()))
	})

	return out
}

// AuthorByName parses name and returns its author.
func (c *Configuration) AuthorByName(name string) (*Author, error) {
	id, err := c.registry.Get(name)
	if err != nil {
		return nil, err
	}

	return c.Get(id)
}

// Get returns the author id is mapped to.
func (c *Configuration) Get(id *AuthorIdentity) (*Author, error) {
	author, ok := c.aliases[id.Shorthand()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAuthor, id)
	}

	return author, nil
}

// AuthorID resolves id to its author's ID; unmapped identities resolve to
// their own shorthand.
func (c *Configuration) AuthorID(id *AuthorIdentity) string {
	author, ok := c.aliases[id.Shorthand()]
	if !ok {
		return id.Shorthand()
	}

	return author.ID()
}

// Enable marks author as shown.
func (c *Configuration) Enable(author *Author) { c.enabled[author] = true }

// Disable marks author as hidden.
func (c *Configuration) Disable(author *Author) { delete(c.enabled, author) }

// IsEnabled reports whether author is shown.
func (c *Configuration) IsEnabled(author *Author) bool { return c.enabled[author] }

// EnabledIDs returns the IDs of all enabled authors in creation order.
func (c *Configuration) EnabledIDs() []string {
	var ids []string

	for _, author := range c.known {
		if c.enabled[author] {
			ids = append(ids, author.ID())
		}
	}

	return ids
}

// IsPrimaryIdentity reports whether id is the primary identity of its author.
func (c *Configuration) IsPrimaryIdentity(id *AuthorIdentity) (bool, error) {
	author, err := c.Get(id)
	if err != nil {
		return false, err
	}

	return author.isPrimary(id), nil
}

// AddAlias maps alias onto author. An alias that already belongs to another
// author can only move when it is that author's primary identity and that
// author has no other aliases; the emptied author is forgotten.
func (c *Configuration) AddAlias(alias *AuthorIdentity, author *Author) error {
	key := alias.Shorthand()

	existing, ok := c.aliases[key]
	if ok && existing != author {
		if !existing.isPrimary(alias) || len(existing.aliases) > 0 {
			return fmt.Errorf("%w: %s => %s", ErrAliasMapped, alias, existing.ID())
		}

		c.forget(existing)
	}

	c.aliases[key] = author
	if !author.isPrimary(alias) {
		author.aliases[key] = alias
	}

	return nil
}

// RemoveAlias detaches a secondary alias from its author and gives the
// orphaned identity a fresh singleton author.
func (c *Configuration) RemoveAlias(alias *AuthorIdentity) (*Author, error) {
	author, err := c.Get(alias)
	if err != nil {
		return nil, err
	}

	if author.isPrimary(alias) {
		return nil, fmt.Errorf("%w: %s", ErrPrimaryAlias, alias)
	}

	before := len(c.known)
	key := alias.Shorthand()

	delete(author.aliases, key)
	delete(c.aliases, key)

	orphan := c.vivify(alias)

	if len(c.known) != before+1 {
		return nil, fmt.Errorf("%w: detaching %s changed author count from %d to %d",
			faults.ErrInvariant, alias, before, len(c.known))
	}

	return orphan, nil
}

// Reassign moves a secondary alias to target.
func (c *Configuration) Reassign(alias *AuthorIdentity, target *Author) error {
	current, err := c.Get(alias)
	if err != nil {
		return err
	}

	if current == target {
		return nil
	}

	if _, err = c.RemoveAlias(alias); err != nil {
		return err
	}

	return c.AddAlias(alias, target)
}

func (c *Configuration) mapTo(aliasName, authorName string) error {
	alias, err := c.registry.Get(aliasName)
	if err != nil {
		return err
	}

	primary, err := c.registry.Get(authorName)
	if err != nil {
		return err
	}

	return c.AddAlias(alias, c.vivify(primary))
}

func (c *Configuration) vivify(id *AuthorIdentity) *Author {
	if author, ok := c.aliases[id.Shorthand()]; ok {
		return author
	}

	author := NewAuthor(id)
	c.known = append(c.known, author)
	c.aliases[id.Shorthand()] = author

	return author
}

func (c *Configuration) forget(author *Author) {
	c.known = slices.DeleteFunc(c.known, func(a *Author) bool { return a == author })
	delete(c.enabled, author)
}
