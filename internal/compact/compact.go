// Package compact shortens JSON object keys through a versioned alias
// table and expands them back.
//
// Aliases are scoped by object kind, so the same short key can stand for
// different long keys in different scopes (a book's name and a verse's
// number are both "n"). Keys without an alias pass through unchanged, but a
// passthrough key may not equal a short alias of its scope; that collision
// would make the document impossible to expand and is reported as
// ErrAliasCollision.
package compact

import (
	"errors"
	"fmt"
	"sort"
)

// ErrAliasCollision reports a key that would make compaction irreversible.
var ErrAliasCollision = errors.New("alias collision")

// Scope names an object kind in the alias table.
type Scope string

// Scopes of the v1 table.
const (
	ScopeDocument  Scope = "document"
	ScopeBook      Scope = "book"
	ScopeChapter   Scope = "chapter"
	ScopeVerse     Scope = "verse"
	ScopeQuestion  Scope = "question"
	ScopeIndex     Scope = "index"
	ScopeIndexBook Scope = "index_book"
)

// ScopeDef is the alias set of one scope.
type ScopeDef struct {
	// Aliases maps long keys to short keys.
	Aliases map[string]string
	// Children maps a long key to the scope of its value. The value may be
	// an object or an array of objects.
	Children map[string]Scope
}

// Table is a versioned set of scopes.
type Table struct {
	Version string
	Scopes  map[Scope]ScopeDef

	inverse map[Scope]map[string]string
}

// V1 is the alias table used by the compact artifacts.
var V1 = MustNew("1.0", map[Scope]ScopeDef{
	ScopeDocument: {
		Children: map[string]Scope{"books": ScopeBook},
	},
	ScopeBook: {
		Aliases: map[string]string{
			"id":            "i",
			"name":          "n",
			"chapter_count": "c",
			"chapters":      "ch",
		},
		Children: map[string]Scope{"chapters": ScopeChapter},
	},
	ScopeChapter: {
		Aliases: map[string]string{
			"chapter_number": "n",
			"verses":         "v",
		},
		Children: map[string]Scope{"verses": ScopeVerse},
	},
	ScopeVerse: {
		Aliases: map[string]string{
			"verse_number":    "n",
			"text":            "t",
			"total_questions": "q",
			"questions":       "qs",
		},
		Children: map[string]Scope{"questions": ScopeQuestion},
	},
	ScopeQuestion: {
		Aliases: map[string]string{
			"title":    "ti",
			"question": "q",
		},
	},
	ScopeIndex: {
		Aliases: map[string]string{
			"version":   "v",
			"timestamp": "t",
			"books":     "b",
		},
		Children: map[string]Scope{"books": ScopeIndexBook},
	},
	ScopeIndexBook: {
		Aliases: map[string]string{
			"id":             "i",
			"name":           "n",
			"slug":           "s",
			"chapter_count":  "c",
			"verse_count":    "v",
			"question_count": "q",
			"file":           "f",
		},
	},
})

// New builds a table and validates it.
func New(version string, scopes map[Scope]ScopeDef) (*Table, error) {
	t := &Table{Version: version, Scopes: scopes}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.inverse = make(map[Scope]map[string]string, len(scopes))
	for name, def := range scopes {
		inv := make(map[string]string, len(def.Aliases))
		for long, short := range def.Aliases {
			inv[short] = long
		}
		t.inverse[name] = inv
	}
	return t, nil
}

// MustNew is New for package-level tables.
func MustNew(version string, scopes map[Scope]ScopeDef) *Table {
	t, err := New(version, scopes)
	if err != nil {
		panic(fmt.Sprintf("compact: %v", err))
	}
	return t
}

// Validate checks that every scope maps keys one to one, that no short key
// is also a long key of the same scope, and that child scopes exist.
func (t *Table) Validate() error {
	for _, name := range t.scopeNames() {
		def := t.Scopes[name]
		seen := make(map[string]string, len(def.Aliases))
		for _, long := range sortedKeys(def.Aliases) {
			short := def.Aliases[long]
			if short == "" {
				return fmt.Errorf("scope %s: empty alias for %q", name, long)
			}
			if other, dup := seen[short]; dup {
				return fmt.Errorf("scope %s: %q and %q share alias %q", name, other, long, short)
			}
			if _, isLong := def.Aliases[short]; isLong && short != long {
				return fmt.Errorf("scope %s: alias %q of %q is also a long key", name, short, long)
			}
			seen[short] = long
		}
		for key, child := range def.Children {
			if _, ok := t.Scopes[child]; !ok {
				return fmt.Errorf("scope %s: key %q refers to unknown scope %s", name, key, child)
			}
		}
	}
	return nil
}

// Compact rewrites the keys of v, an object decoded from JSON or built from
// map[string]any, starting in scope. The input is not modified.
func (t *Table) Compact(scope Scope, v any) (any, error) {
	return t.walk(scope, v, t.compactKey)
}

// Expand reverses Compact.
func (t *Table) Expand(scope Scope, v any) (any, error) {
	return t.walk(scope, v, t.expandKey)
}

// rename maps a key within scope and returns the long form of the key,
// which is what child scopes are declared under.
type rename func(scope Scope, key string) (out, long string, err error)

func (t *Table) compactKey(scope Scope, key string) (string, string, error) {
	def := t.Scopes[scope]
	if short, ok := def.Aliases[key]; ok {
		return short, key, nil
	}
	if long, ok := t.inverse[scope][key]; ok {
		return "", "", fmt.Errorf("%w: key %q in scope %s is the alias of %q", ErrAliasCollision, key, scope, long)
	}
	return key, key, nil
}

func (t *Table) expandKey(scope Scope, key string) (string, string, error) {
	if long, ok := t.inverse[scope][key]; ok {
		return long, long, nil
	}
	if _, ok := t.Scopes[scope].Aliases[key]; ok {
		return "", "", fmt.Errorf("%w: long key %q found in compacted scope %s", ErrAliasCollision, key, scope)
	}
	return key, key, nil
}

func (t *Table) walk(scope Scope, v any, fn rename) (any, error) {
	if _, ok := t.Scopes[scope]; !ok {
		return nil, fmt.Errorf("unknown scope %s", scope)
	}
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for key, val := range x {
			newKey, long, err := fn(scope, key)
			if err != nil {
				return nil, err
			}
			if child, ok := t.Scopes[scope].Children[long]; ok {
				if val, err = t.walk(child, val, fn); err != nil {
					return nil, fmt.Errorf("%s: %w", key, err)
				}
			}
			out[newKey] = val
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, el := range x {
			conv, err := t.walk(scope, el, fn)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = conv
		}
		return out, nil
	case []map[string]any:
		out := make([]any, len(x))
		for i, el := range x {
			conv, err := t.walk(scope, el, fn)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = conv
		}
		return out, nil
	}
	return v, nil
}

func (t *Table) scopeNames() []Scope {
	names := make([]Scope, 0, len(t.Scopes))
	for name := range t.Scopes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
