// Package taxonomy holds the four-level spending taxonomy
// (department → category → subcategory → item group) and the rule-based
// classifier that assigns line items to it.
//
// The taxonomy is built once into an arena of nodes referenced by index and
// is never mutated afterwards; any number of goroutines may read it.
package taxonomy

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrJamesThe3rd/fisly/internal/textnorm"
)

// Level is the depth of a node, starting at 1 for departments.
type Level int

const (
	LevelDepartment  Level = 1
	LevelCategory    Level = 2
	LevelSubcategory Level = 3
	LevelItemGroup   Level = 4
)

func (l Level) String() string {
	switch l {
	case LevelDepartment:
		return "department"
	case LevelCategory:
		return "category"
	case LevelSubcategory:
		return "subcategory"
	case LevelItemGroup:
		return "item_group"
	}

	return "unknown"
}

// OtherID is the id of the catch-all department every taxonomy must declare.
const OtherID = "other"

// Node is one entry of the arena.
type Node struct {
	ID       string
	Name     string
	NameEN   string
	Color    string
	Icon     string
	Level    Level
	Parent   int // -1 for departments
	Triggers []string
}

// trigger is a folded trigger phrase split into tokens.
type trigger []string

type Taxonomy struct {
	nodes    []Node
	children [][]int
	triggers [][]trigger
	byID     map[string]int
	byToken  map[string][]int // first token of a trigger → node indices
	fallback int
}

//go:embed assets/taxonomy.yaml
var defaultAsset []byte

// nodeSpec mirrors the nested asset layout.
type nodeSpec struct {
	ID            string     `yaml:"id"`
	Name          string     `yaml:"name"`
	NameEN        string     `yaml:"name_en"`
	Color         string     `yaml:"color"`
	Icon          string     `yaml:"icon"`
	Triggers      []string   `yaml:"triggers"`
	Categories    []nodeSpec `yaml:"categories"`
	Subcategories []nodeSpec `yaml:"subcategories"`
	ItemGroups    []nodeSpec `yaml:"item_groups"`
}

type assetSpec struct {
	Departments []nodeSpec `yaml:"departments"`
}

// LoadDefault builds the taxonomy shipped with the binary.
func LoadDefault() (*Taxonomy, error) {
	return Load(bytes.NewReader(defaultAsset))
}

// LoadFile builds a taxonomy from a YAML file on disk.
func LoadFile(path string) (*Taxonomy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening taxonomy: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load decodes a YAML asset and builds the arena.
func Load(r io.Reader) (*Taxonomy, error) {
	var spec assetSpec
	if err := yaml.NewDecoder(r).Decode(&spec); err != nil {
		return nil, fmt.Errorf("decoding taxonomy: %w", err)
	}

	if len(spec.Departments) == 0 {
		return nil, errors.New("taxonomy has no departments")
	}

	t := &Taxonomy{
		byID:     make(map[string]int),
		byToken:  make(map[string][]int),
		fallback: -1,
	}

	for _, d := range spec.Departments {
		if err := t.add(d, LevelDepartment, -1); err != nil {
			return nil, err
		}
	}

	other, ok := t.byID[OtherID]
	if !ok || t.nodes[other].Level != LevelDepartment {
		return nil, fmt.Errorf("taxonomy must declare a %q department", OtherID)
	}

	t.fallback = t.findFallback(other)

	return t, nil
}

func (t *Taxonomy) add(spec nodeSpec, level Level, parent int) error {
	id := strings.TrimSpace(spec.ID)
	if id == "" {
		return fmt.Errorf("taxonomy %s without id under %q", level, t.idOf(parent))
	}

	if _, dup := t.byID[id]; dup {
		return fmt.Errorf("duplicate taxonomy id %q", id)
	}

	idx := len(t.nodes)
	t.nodes = append(t.nodes, Node{
		ID:       id,
		Name:     spec.Name,
		NameEN:   spec.NameEN,
		Color:    spec.Color,
		Icon:     spec.Icon,
		Level:    level,
		Parent:   parent,
		Triggers: spec.Triggers,
	})
	t.children = append(t.children, nil)
	t.triggers = append(t.triggers, nil)
	t.byID[id] = idx

	if parent >= 0 {
		t.children[parent] = append(t.children[parent], idx)
	}

	seen := make(map[string]struct{})

	for _, raw := range spec.Triggers {
		tokens := textnorm.Tokens(raw)
		if len(tokens) == 0 {
			continue
		}

		key := strings.Join(tokens, " ")
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}
		t.triggers[idx] = append(t.triggers[idx], trigger(tokens))
		t.byToken[tokens[0]] = appendUnique(t.byToken[tokens[0]], idx)
	}

	var next []nodeSpec

	switch level {
	case LevelDepartment:
		next = spec.Categories
	case LevelCategory:
		next = spec.Subcategories
	case LevelSubcategory:
		next = spec.ItemGroups
	}

	if level != LevelDepartment && len(spec.Categories) > 0 ||
		level != LevelCategory && len(spec.Subcategories) > 0 ||
		level != LevelSubcategory && len(spec.ItemGroups) > 0 {
		return fmt.Errorf("taxonomy node %q nests children at the wrong level", id)
	}

	for _, child := range next {
		if err := t.add(child, level+1, idx); err != nil {
			return err
		}
	}

	return nil
}

// findFallback picks the first trigger-less leaf under the catch-all
// department, or the department itself.
func (t *Taxonomy) findFallback(root int) int {
	var walk func(int) int

	walk = func(i int) int {
		if len(t.children[i]) == 0 {
			if len(t.triggers[i]) == 0 {
				return i
			}

			return -1
		}

		for _, c := range t.children[i] {
			if found := walk(c); found >= 0 {
				return found
			}
		}

		return -1
	}

	if found := walk(root); found >= 0 {
		return found
	}

	return root
}

func (t *Taxonomy) idOf(i int) string {
	if i < 0 {
		return ""
	}

	return t.nodes[i].ID
}

// Node returns the node with the given id.
func (t *Taxonomy) Node(id string) (Node, bool) {
	i, ok := t.byID[id]
	if !ok {
		return Node{}, false
	}

	return t.nodes[i], true
}

// Path returns the nodes from the department down to id, inclusive.
func (t *Taxonomy) Path(id string) []Node {
	i, ok := t.byID[id]
	if !ok {
		return nil
	}

	var path []Node
	for ; i >= 0; i = t.nodes[i].Parent {
		path = append(path, t.nodes[i])
	}

	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}

	return path
}

// Departments returns the top-level nodes in declaration order.
func (t *Taxonomy) Departments() []Node {
	var out []Node

	for _, n := range t.nodes {
		if n.Level == LevelDepartment {
			out = append(out, n)
		}
	}

	return out
}

// Children returns the direct children of id in declaration order.
func (t *Taxonomy) Children(id string) []Node {
	i, ok := t.byID[id]
	if !ok {
		return nil
	}

	out := make([]Node, 0, len(t.children[i]))
	for _, c := range t.children[i] {
		out = append(out, t.nodes[c])
	}

	return out
}

// Fallback returns the catch-all leaf.
func (t *Taxonomy) Fallback() Node {
	return t.nodes[t.fallback]
}

// Len is the number of nodes in the arena.
func (t *Taxonomy) Len() int {
	return len(t.nodes)
}

func appendUnique(s []int, v int) []int {
	for _, x := range s {
		if x == v {
			return s
		}
	}

	return append(s, v)
}
