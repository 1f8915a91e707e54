// Package backend serves the query and prefetch endpoints a suggestion source talks to.
//
// It holds a directory of firm and company names. Prefetch returns the
// caller's own entries; remote queries return everyone else's entries whose
// name starts with the fragment, alphabetically. The full search groups
// matching firms by firm type next to the matching companies.
package backend

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tchap/go-patricia/v2/patricia"
	"gopkg.in/yaml.v3"
)

// Entity kinds.
const (
	KindFirm    = "firm"
	KindCompany = "company"
)

// Firm types.
const (
	TypeVC = "vc" // venture capital
	TypeAI = "ai" // angel investor
	TypeSU = "su" // startup
)

// Entity is one searchable name. Type and Tier only apply to firms.
type Entity struct {
	ID    int    `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Kind  string `yaml:"kind" json:"kind"`
	Type  string `yaml:"type,omitempty" json:"type,omitempty"`
	Tier  string `yaml:"tier,omitempty" json:"tier,omitempty"`
	Owner string `yaml:"owner,omitempty" json:"-"`
}

// Grouped is the result of a full search.
// Firms without a firm type match no group.
type Grouped struct {
	VC        []Entity
	AI        []Entity
	SU        []Entity
	Companies []Entity
}

type directoryFile struct {
	Entities []Entity `yaml:"entities"`
}

// Directory is an immutable, prefix-indexed set of entities.
type Directory struct {
	entities []Entity
	byName   *patricia.Trie // lowercased name -> []int
}

// LoadDirectory reads a YAML file with a top-level "entities" list.
func LoadDirectory(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading entities file: %w", err)
	}
	return ParseDirectory(data)
}

// ParseDirectory builds a directory from YAML.
func ParseDirectory(data []byte) (*Directory, error) {
	var f directoryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing entities: %w", err)
	}
	return NewDirectory(f.Entities)
}

// NewDirectory validates and indexes entities. Kind defaults to firm.
// Every entity needs a positive id, unique within the directory.
func NewDirectory(entities []Entity) (*Directory, error) {
	d := &Directory{
		entities: make([]Entity, 0, len(entities)),
		byName:   patricia.NewTrie(),
	}
	ids := make(map[int]bool, len(entities))
	for i, e := range entities {
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" {
			return nil, fmt.Errorf("entity %d: empty name", i)
		}
		if e.ID <= 0 {
			return nil, fmt.Errorf("entity %d (%s): missing id", i, e.Name)
		}
		if ids[e.ID] {
			return nil, fmt.Errorf("entity %d (%s): duplicate id %d", i, e.Name, e.ID)
		}
		ids[e.ID] = true

		switch e.Kind {
		case "":
			e.Kind = KindFirm
		case KindFirm, KindCompany:
		default:
			return nil, fmt.Errorf("entity %d (%s): unknown kind %q", i, e.Name, e.Kind)
		}
		switch {
		case e.Type == "":
		case e.Kind == KindCompany:
			return nil, fmt.Errorf("entity %d (%s): companies have no firm type", i, e.Name)
		case e.Type != TypeVC && e.Type != TypeAI && e.Type != TypeSU:
			return nil, fmt.Errorf("entity %d (%s): unknown firm type %q", i, e.Name, e.Type)
		}

		pos := len(d.entities)
		d.entities = append(d.entities, e)

		key := patricia.Prefix(strings.ToLower(e.Name))
		var positions []int
		if item := d.byName.Get(key); item != nil {
			positions = item.([]int)
		}
		d.byName.Set(key, append(positions, pos))
	}
	return d, nil
}

// Len returns the number of entities.
func (d *Directory) Len() int {
	return len(d.entities)
}

// Search returns entities whose name starts with query, ignoring case,
// skipping those owned by exceptOwner when it is set.
func (d *Directory) Search(query, exceptOwner string) []Entity {
	var found []Entity
	d.visitPrefix(query, func(e Entity) {
		if exceptOwner == "" || e.Owner != exceptOwner {
			found = append(found, e)
		}
	})
	return uniqueByName(found)
}

// SearchGrouped returns every entity whose name starts with query, firms
// split by type, each group ordered by name. Ownership is ignored.
func (d *Directory) SearchGrouped(query string) Grouped {
	var g Grouped
	d.visitPrefix(query, func(e Entity) {
		switch {
		case e.Kind == KindCompany:
			g.Companies = append(g.Companies, e)
		case e.Type == TypeVC:
			g.VC = append(g.VC, e)
		case e.Type == TypeAI:
			g.AI = append(g.AI, e)
		case e.Type == TypeSU:
			g.SU = append(g.SU, e)
		}
	})
	for _, group := range [][]Entity{g.VC, g.AI, g.SU, g.Companies} {
		sortByName(group)
	}
	return g
}

func (d *Directory) visitPrefix(query string, fn func(Entity)) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return
	}
	_ = d.byName.VisitSubtree(patricia.Prefix(query), func(_ patricia.Prefix, item patricia.Item) error {
		for _, pos := range item.([]int) {
			fn(d.entities[pos])
		}
		return nil
	})
}

// Owned returns the entities of owner, or every entity when owner is empty.
func (d *Directory) Owned(owner string) []Entity {
	var found []Entity
	for _, e := range d.entities {
		if owner == "" || e.Owner == owner {
			found = append(found, e)
		}
	}
	return uniqueByName(found)
}

// uniqueByName sorts by name and keeps the first entity of every name,
// so a firm and a company sharing a name are listed once.
func uniqueByName(entities []Entity) []Entity {
	sortByName(entities)

	out := entities[:0]
	for _, e := range entities {
		if n := len(out); n > 0 && out[n-1].Name == e.Name {
			continue
		}
		out = append(out, e)
	}
	return out
}

// sortByName orders case-insensitively, ties broken by the exact name.
func sortByName(entities []Entity) {
	sort.SliceStable(entities, func(i, j int) bool {
		a, b := strings.ToLower(entities[i].Name), strings.ToLower(entities[j].Name)
		if a != b {
			return a < b
		}
		return entities[i].Name < entities[j].Name
	})
}
