package permission

import (
	"strings"

	"backend/internal/model"
)

// RouteRule pairs a route prefix with the set of roles authorized for
// any path beginning with that prefix.
type RouteRule struct {
	Prefix string
	Roles  []model.Role
}

// Table holds the static route permission rules. Rules live in a trie
// keyed by path segments so that longest-prefix-wins is a property of
// the data structure, not of iteration order. The table is built once
// at startup and never mutated afterwards.
type Table struct {
	root    *node
	landing map[model.Role]string
	public  []string
}

type node struct {
	children map[string]*node
	roles    map[model.Role]struct{}
	rule     bool // a rule terminates at this node
}

// NewTable builds a table from an explicit rule set, the role landing
// map and the public path prefixes.
func NewTable(rules []RouteRule, landing map[model.Role]string, public []string) *Table {
	t := &Table{
		root:    &node{children: map[string]*node{}},
		landing: make(map[model.Role]string, len(landing)),
		public:  append([]string(nil), public...),
	}
	for r, p := range landing {
		t.landing[r] = p
	}
	for _, rule := range rules {
		t.register(rule)
	}
	return t
}

func (t *Table) register(rule RouteRule) {
	cur := t.root
	for _, seg := range splitPath(rule.Prefix) {
		next, ok := cur.children[seg]
		if !ok {
			next = &node{children: map[string]*node{}}
			cur.children[seg] = next
		}
		cur = next
	}
	if cur.roles == nil {
		cur.roles = make(map[model.Role]struct{}, len(rule.Roles))
	}
	for _, role := range rule.Roles {
		cur.roles[role] = struct{}{}
	}
	cur.rule = true
}

// RulesForPath returns the authorized role set for the longest
// registered prefix matching path. The empty set means no prefix
// matches: deny by default.
func (t *Table) RulesForPath(path string) map[model.Role]struct{} {
	var deepest map[model.Role]struct{}
	cur := t.root
	if cur.rule {
		deepest = cur.roles
	}
	for _, seg := range splitPath(path) {
		next, ok := cur.children[seg]
		if !ok {
			break
		}
		cur = next
		if cur.rule {
			deepest = cur.roles
		}
	}
	if deepest == nil {
		return map[model.Role]struct{}{}
	}
	out := make(map[model.Role]struct{}, len(deepest))
	for r := range deepest {
		out[r] = struct{}{}
	}
	return out
}

// DefaultLandingRoute returns the canonical home path for a role.
// An unknown role is a configuration defect reported as UnknownRoleError;
// callers must log it and fall back to the login path.
func (t *Table) DefaultLandingRoute(role model.Role) (string, error) {
	if p, ok := t.landing[role]; ok {
		return p, nil
	}
	return LoginPath, &UnknownRoleError{Role: role}
}

// IsPublic reports whether the path falls under a prefix that requires
// no authentication at all.
func (t *Table) IsPublic(path string) bool {
	for _, p := range t.public {
		if hasPathPrefix(path, p) {
			return true
		}
	}
	return false
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// hasPathPrefix matches whole path segments: "/login" matches
// "/login/otp" but not "/login-help".
func hasPathPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) {
		return true
	}
	return path[len(prefix)] == '/'
}
