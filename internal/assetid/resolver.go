package assetid

import (
	"strconv"
	"strings"
)

type resolverKey struct {
	movie string
	area  string
	kind  Kind
	name  string
}

// Resolver assigns collision-free output names within one job. Identities must
// be assigned in discovery order so the first claimant keeps the plain name.
type Resolver struct {
	taken map[resolverKey]struct{}
}

// NewResolver returns an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{taken: make(map[resolverKey]struct{})}
}

// Assign sets id.Output. A later identity that would collide on
// (area, kind, name) is renamed to <name>-<index>, with a numeric suffix if
// that is also taken. Keys compare case-insensitively.
func (r *Resolver) Assign(id Identity) Identity {
	base := id.BaseName()
	candidate := base
	if r.claimed(id, candidate) {
		candidate = base + "-" + strconv.Itoa(id.Index)
		for n := 2; r.claimed(id, candidate); n++ {
			candidate = base + "-" + strconv.Itoa(id.Index) + "-" + strconv.Itoa(n)
		}
	}
	r.taken[r.key(id, candidate)] = struct{}{}
	id.Output = candidate
	return id
}

// Reserve marks a name as taken without an identity, used for alias outputs.
// It returns false when the name is already claimed.
func (r *Resolver) Reserve(id Identity, name string) bool {
	if r.claimed(id, name) {
		return false
	}
	r.taken[r.key(id, name)] = struct{}{}
	return true
}

func (r *Resolver) claimed(id Identity, name string) bool {
	_, ok := r.taken[r.key(id, name)]
	return ok
}

func (r *Resolver) key(id Identity, name string) resolverKey {
	return resolverKey{
		movie: strings.ToLower(id.Movie),
		area:  strings.ToLower(id.Area),
		kind:  id.Kind,
		name:  strings.ToLower(name),
	}
}
