// Package category holds the category registry: a fixed set of built-in
// categories plus the user's own, with names unique ignoring case across both.
package category

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"pocket/internal/core"
)

//go:embed builtins.yaml
var builtinsYAML []byte

var builtins = mustParseBuiltins(builtinsYAML)

// ParseBuiltins decodes a YAML list of categories and marks them as defaults.
func ParseBuiltins(data []byte) ([]core.Category, error) {
	var cats []core.Category
	if err := yaml.Unmarshal(data, &cats); err != nil {
		return nil, fmt.Errorf("decode builtin categories: %w", err)
	}
	seenID := make(map[string]struct{}, len(cats))
	for i := range cats {
		cats[i].IsDefault = true
		if cats[i].ID == "" || strings.TrimSpace(cats[i].Name) == "" {
			return nil, fmt.Errorf("builtin category %d: id and name are required", i)
		}
		if _, dup := seenID[cats[i].ID]; dup {
			return nil, fmt.Errorf("builtin category %q: duplicate id", cats[i].ID)
		}
		seenID[cats[i].ID] = struct{}{}
		for j := 0; j < i; j++ {
			if core.SameName(cats[i].Name, cats[j].Name) {
				return nil, fmt.Errorf("builtin category %q: duplicate name", cats[i].Name)
			}
		}
	}
	return cats, nil
}

func mustParseBuiltins(data []byte) []core.Category {
	cats, err := ParseBuiltins(data)
	if err != nil {
		panic(err)
	}
	return cats
}

// Builtins returns the built-in categories in declaration order.
func Builtins() []core.Category {
	return append([]core.Category(nil), builtins...)
}

// Registry is not safe for concurrent use; its owner serializes access.
type Registry struct {
	builtins []core.Category
	user     []core.Category
	deleted  []string
	newID    func() string
}

// Option configures a Registry.
type Option func(*Registry)

// WithIDGenerator overrides how ids are assigned to categories added without one.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) { r.newID = fn }
}

// WithDeleted restores the ids of user categories deleted earlier, so
// MergeRemote keeps them out.
func WithDeleted(ids []string) Option {
	return func(r *Registry) {
		for _, id := range ids {
			r.markDeleted(id)
		}
	}
}

// WithBuiltins replaces the embedded built-in set.
func WithBuiltins(cats []core.Category) Option {
	return func(r *Registry) {
		r.builtins = make([]core.Category, len(cats))
		for i, c := range cats {
			c.IsDefault = true
			r.builtins[i] = c
		}
	}
}

// New builds a registry from previously stored user categories. Stored
// entries that would break id or name uniqueness are dropped.
func New(user []core.Category, opts ...Option) *Registry {
	r := &Registry{
		builtins: builtins,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, c := range user {
		if c.ID == "" {
			continue
		}
		r.Add(c)
	}
	return r
}

// List returns built-ins first, then user categories in insertion order.
func (r *Registry) List() []core.Category {
	out := make([]core.Category, 0, len(r.builtins)+len(r.user))
	out = append(out, r.builtins...)
	return append(out, r.user...)
}

// User returns only the user-defined categories.
func (r *Registry) User() []core.Category {
	return append([]core.Category(nil), r.user...)
}

// Deleted returns the ids of deleted user categories in deletion order.
func (r *Registry) Deleted() []string {
	return append([]string(nil), r.deleted...)
}

// Lookup resolves id against built-in and user categories.
func (r *Registry) Lookup(id string) (core.Category, bool) {
	for _, c := range r.builtins {
		if c.ID == id {
			return c, true
		}
	}
	if i := r.userIndex(id); i >= 0 {
		return r.user[i], true
	}
	return core.Category{}, false
}

// Add appends c to the user categories. It returns false, leaving the
// registry untouched, when the name is blank, the name matches an existing
// category ignoring case, or the id is already taken. An empty id is filled in.
// Adding an id that was deleted before brings it back.
func (r *Registry) Add(c core.Category) bool {
	if !r.add(c) {
		return false
	}
	r.deleted = slices.DeleteFunc(r.deleted, func(id string) bool { return id == c.ID })
	return true
}

func (r *Registry) add(c core.Category) bool {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" || r.nameTaken(c.Name, "") {
		return false
	}
	if c.ID == "" {
		c.ID = r.newID()
	}
	if _, exists := r.Lookup(c.ID); exists {
		return false
	}
	c.IsDefault = false
	r.user = append(r.user, c)
	return true
}

// Edit merges u into the user category id. Built-ins and unknown ids are
// rejected, as is a blank name or one colliding with any other category.
func (r *Registry) Edit(id string, u core.CategoryUpdate) bool {
	i := r.userIndex(id)
	if i < 0 {
		return false
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" || r.nameTaken(name, id) {
			return false
		}
	}
	r.user[i] = u.Apply(r.user[i])
	return true
}

// Delete removes the user category id and remembers it as deleted. Unknown
// and built-in ids are ignored. It reports whether anything was removed.
func (r *Registry) Delete(id string) bool {
	i := r.userIndex(id)
	if i < 0 {
		return false
	}
	r.user = append(r.user[:i:i], r.user[i+1:]...)
	r.markDeleted(id)
	return true
}

// MergeRemote unions remotely stored categories into the user set, keyed by
// id with local entries winning. Remote entries that reuse a built-in id,
// were deleted locally or whose name collides with a category already
// present are skipped. It returns how many categories were added.
func (r *Registry) MergeRemote(remote []core.Category) int {
	added := 0
	for _, c := range remote {
		if c.ID == "" || r.isDeleted(c.ID) {
			continue
		}
		if r.add(c) {
			added++
		}
	}
	return added
}

func (r *Registry) markDeleted(id string) {
	if id != "" && !r.isDeleted(id) {
		r.deleted = append(r.deleted, id)
	}
}

func (r *Registry) isDeleted(id string) bool {
	return slices.Contains(r.deleted, id)
}

func (r *Registry) userIndex(id string) int {
	for i, c := range r.user {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// nameTaken checks name against every category except the one with id except.
// It always looks at the current sets.
func (r *Registry) nameTaken(name, except string) bool {
	for _, set := range [][]core.Category{r.builtins, r.user} {
		for _, c := range set {
			if c.ID != except && core.SameName(c.Name, name) {
				return true
			}
		}
	}
	return false
}
