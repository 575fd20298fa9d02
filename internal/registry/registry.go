// Package registry describes every entity kind the service manages: whether
// it can be soft-deleted, which columns identify it in listings and exports,
// and which columns must be unique.
package registry

import (
	"fmt"
	"sort"

	"libhub/internal/models"
)

type Kind string

const (
	KindLanguages  Kind = "languages"
	KindPublishers Kind = "publishers"
	KindGenres     Kind = "genres"
	KindAuthors    Kind = "authors"
	KindBooks      Kind = "books"
	KindUsers      Kind = "users"
	KindLoans      Kind = "loans"
)

type Capability int

const (
	NonDeletable Capability = iota
	Deletable
)

func (c Capability) String() string {
	if c == Deletable {
		return "deletable"
	}
	return "non-deletable"
}

// Spec is one row of the registry.
type Spec struct {
	Kind          Kind
	Capability    Capability
	DisplayFields []string
	UniqueFields  []string
	// NewModel returns a pointer to a zero gorm model of this kind.
	NewModel func() any
}

// Deletable reports whether bulk delete/restore applies to the kind.
func (s Spec) Deletable() bool {
	return s.Capability == Deletable
}

type Registry struct {
	specs map[Kind]Spec
}

// New builds a registry, rejecting duplicate kinds.
func New(specs ...Spec) (*Registry, error) {
	r := &Registry{specs: make(map[Kind]Spec, len(specs))}
	for _, s := range specs {
		if _, dup := r.specs[s.Kind]; dup {
			return nil, fmt.Errorf("registry: kind %q registered twice", s.Kind)
		}
		if s.NewModel == nil {
			return nil, fmt.Errorf("registry: kind %q has no model constructor", s.Kind)
		}
		r.specs[s.Kind] = s
	}
	return r, nil
}

// Default is the table the server runs with.
func Default() *Registry {
	r, err := New(
		Spec{
			Kind:          KindLanguages,
			Capability:    Deletable,
			DisplayFields: []string{"id", "name", "chars_code", "is_deleted"},
			UniqueFields:  []string{"name", "chars_code"},
			NewModel:      func() any { return &models.Language{} },
		},
		Spec{
			Kind:          KindPublishers,
			Capability:    Deletable,
			DisplayFields: []string{"id", "name", "address", "is_deleted"},
			UniqueFields:  []string{"name"},
			NewModel:      func() any { return &models.Publisher{} },
		},
		Spec{
			Kind:          KindGenres,
			Capability:    Deletable,
			DisplayFields: []string{"id", "name", "is_deleted"},
			UniqueFields:  []string{"name"},
			NewModel:      func() any { return &models.Genre{} },
		},
		Spec{
			Kind:          KindAuthors,
			Capability:    Deletable,
			DisplayFields: []string{"id", "first_name", "last_name", "middle_name", "is_deleted"},
			NewModel:      func() any { return &models.Author{} },
		},
		Spec{
			Kind:          KindBooks,
			Capability:    Deletable,
			DisplayFields: []string{"id", "name", "publication_year", "language_id", "cover_url", "is_deleted"},
			NewModel:      func() any { return &models.Book{} },
		},
		Spec{
			Kind:          KindUsers,
			Capability:    NonDeletable,
			DisplayFields: []string{"id", "email", "first_name", "last_name", "is_active", "is_staff", "created_at"},
			UniqueFields:  []string{"email"},
			NewModel:      func() any { return &models.User{} },
		},
		Spec{
			Kind:          KindLoans,
			Capability:    NonDeletable,
			DisplayFields: []string{"id", "user_id", "book_id", "borrow_date", "return_date", "status", "created_at"},
			NewModel:      func() any { return &models.Loan{} },
		},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the registered Spec for kind.
func (r *Registry) Lookup(kind Kind) (Spec, bool) {
	s, ok := r.specs[kind]
	return s, ok
}

// Kinds lists registered kinds in name order.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.specs))
	for k := range r.specs {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// DeletableKinds lists the kinds that support soft delete, in name order.
func (r *Registry) DeletableKinds() []Kind {
	var kinds []Kind
	for _, k := range r.Kinds() {
		if r.specs[k].Deletable() {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
