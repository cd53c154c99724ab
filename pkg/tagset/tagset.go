// Package tagset merges the per-commit tag lists into the final answer.
package tagset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver"
)

// Order is how the final tag list is sorted.
type Order string

const (
	Lexical Order = "lexical"
	Semver  Order = "semver"
)

// ParseOrder validates an order name.
func ParseOrder(s string) (Order, error) {
	switch o := Order(strings.ToLower(s)); o {
	case Lexical, Semver:
		return o, nil
	case "":
		return Lexical, nil
	default:
		return "", fmt.Errorf("unknown sort order %q (want %s or %s)", s, Lexical, Semver)
	}
}

// Union concatenates lists, drops blank entries and duplicates, and sorts the
// result lexically. The result is never nil.
func Union(lists ...[]string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, list := range lists {
		for _, tag := range list {
			tag = strings.TrimSpace(tag)
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			out = append(out, tag)
		}
	}
	sort.Strings(out)
	return out
}

// Sort orders tags in place. Semver order puts parseable versions first in
// version order and everything else after them, lexically.
func Sort(tags []string, order Order) {
	if order != Semver {
		sort.Strings(tags)
		return
	}

	versions := make(map[string]*semver.Version, len(tags))
	for _, t := range tags {
		if v, err := semver.NewVersion(t); err == nil {
			versions[t] = v
		}
	}
	sort.SliceStable(tags, func(i, j int) bool {
		vi, vj := versions[tags[i]], versions[tags[j]]
		switch {
		case vi != nil && vj != nil:
			if vi.Equal(vj) {
				return tags[i] < tags[j]
			}
			return vi.LessThan(vj)
		case vi != nil:
			return true
		case vj != nil:
			return false
		default:
			return tags[i] < tags[j]
		}
	})
}
