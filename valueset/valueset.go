// CLAUDE:SUMMARY Typed string set plus the delimited-text codec used at the persistence edge.
// Package valueset holds the unordered string set used for children, attribute
// names and attribute values, and the codec that flattens such a set into one
// text column.
//
// In-memory code only ever handles Set. Encode and Decode are called by the
// store when a row is written or read, nowhere else.
//
// The codec does not escape: a member containing Separator is split on decode.
// Callers that accept free-form attribute values live with that risk.
package valueset

import (
	"sort"
	"strings"
)

// Separator joins set members in an encoded field.
const Separator = "|~|"

// Set is an unordered collection of distinct non-empty strings.
// The zero value is not usable; build sets with New or Of.
type Set map[string]struct{}

// New returns an empty set.
func New() Set {
	return make(Set)
}

// Of returns a set holding members, dropping empty strings and duplicates.
func Of(members ...string) Set {
	s := make(Set, len(members))
	for _, m := range members {
		s.Add(m)
	}
	return s
}

// Add inserts m. Empty strings are ignored. Reports whether s grew.
func (s Set) Add(m string) bool {
	if m == "" {
		return false
	}
	if _, ok := s[m]; ok {
		return false
	}
	s[m] = struct{}{}
	return true
}

// Remove deletes m. Reports whether m was present.
func (s Set) Remove(m string) bool {
	if _, ok := s[m]; !ok {
		return false
	}
	delete(s, m)
	return true
}

// Has reports whether m is a member.
func (s Set) Has(m string) bool {
	_, ok := s[m]
	return ok
}

// Len returns the number of members.
func (s Set) Len() int { return len(s) }

// Union adds every member of other to s and returns s.
func (s Set) Union(other Set) Set {
	for m := range other {
		s[m] = struct{}{}
	}
	return s
}

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for m := range s {
		c[m] = struct{}{}
	}
	return c
}

// Equal reports whether s and other hold the same members.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for m := range s {
		if _, ok := other[m]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the members in case-sensitive lexicographic order.
// The result is never nil.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Encode joins the members of s with Separator in sorted order.
// An empty or nil set encodes to "", the same value as an unset column.
func Encode(s Set) string {
	if len(s) == 0 {
		return ""
	}
	return strings.Join(s.Sorted(), Separator)
}

// Decode splits field on Separator, discarding empty segments and duplicates.
// Decode("") returns an empty set.
func Decode(field string) Set {
	s := New()
	if field == "" {
		return s
	}
	for _, part := range strings.Split(field, Separator) {
		s.Add(part)
	}
	return s
}

// Normalize returns the canonical encoding of field. It is the identity on
// any value produced by Encode.
func Normalize(field string) string {
	return Encode(Decode(field))
}
