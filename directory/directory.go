/*
Package directory provides the read-only user and store directory.

PURPOSE:
  Injected lookup of who can log in, which store they operate, and the
  short codes locations are known by in artifact filenames. The directory
  is loaded once from configuration and never mutated at runtime, so it
  can be swapped for a persisted implementation without touching callers.

ROLES:
  admin    sees every store and may record movements for any origin
  operator bound to one store; sees and records only for that store

STORE CODES:
  Artifact filenames carry a short store code. Lookup order: configured
  mapping, then the last word of the store name, then UNKNOWN.

SEE ALSO:
  - api/auth.go: login against this directory
  - artifact/manager.go: store code resolution for filenames
*/
package directory

import "strings"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
)

// User is one directory entry.
type User struct {
	ID       int
	Name     string
	Email    string
	Password string
	Store    string
	Role     Role
}

// IsAdmin reports whether the user sees all stores.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Directory is the immutable lookup service.
type Directory struct {
	byEmail    map[string]User
	storeCodes map[string]string
}

// New builds a directory from users and a store-name-to-code mapping.
// Either argument may be empty.
func New(users []User, storeCodes map[string]string) *Directory {
	d := &Directory{
		byEmail:    make(map[string]User, len(users)),
		storeCodes: make(map[string]string, len(storeCodes)),
	}
	for _, u := range users {
		d.byEmail[strings.ToLower(u.Email)] = u
	}
	for name, code := range storeCodes {
		d.storeCodes[name] = code
	}
	return d
}

// FindByEmail looks a user up case-insensitively.
func (d *Directory) FindByEmail(email string) (User, bool) {
	u, ok := d.byEmail[strings.ToLower(strings.TrimSpace(email))]
	return u, ok
}

// Len returns the number of users.
func (d *Directory) Len() int { return len(d.byEmail) }

// StoreCode resolves the short code for a store name: configured mapping
// first, then the last word of the name, then UNKNOWN.
func (d *Directory) StoreCode(store string) string {
	if code, ok := d.storeCodes[store]; ok && code != "" {
		return code
	}
	fields := strings.Fields(store)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	return fields[len(fields)-1]
}
