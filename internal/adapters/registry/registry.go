// Package registry loads game definitions from YAML.
package registry

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/skillgrade/internal/domain/model"
)

// ErrGameNotFound is returned by Lookup for unknown game ids.
var ErrGameNotFound = errors.New("game not found")

// ErrInvalidGame marks a registry entry that fails validation on load.
var ErrInvalidGame = errors.New("invalid game definition")

type document struct {
	Games []model.Game `yaml:"games"`
}

// Registry is an immutable, in-memory game catalogue.
type Registry struct {
	games map[string]model.Game
}

// New builds a registry from games, rejecting duplicates and malformed entries.
func New(games []model.Game) (*Registry, error) {
	r := &Registry{games: make(map[string]model.Game, len(games))}
	for _, g := range games {
		if err := check(g); err != nil {
			return nil, err
		}
		if _, dup := r.games[g.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidGame, g.ID)
		}
		r.games[g.ID] = g
	}
	return r, nil
}

// Load reads a registry document from path.
func Load(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open games file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a registry document.
func Decode(r io.Reader) (*Registry, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode games: %w", err)
	}
	return New(doc.Games)
}

func check(g model.Game) error {
	switch {
	case strings.TrimSpace(g.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidGame)
	case len(g.Rubric) == 0:
		return fmt.Errorf("%w: %s has no rubric", ErrInvalidGame, g.ID)
	}
	seen := make(map[string]bool, len(g.Rubric))
	for _, c := range g.Rubric {
		if c.Name == "" || c.MaxPoints <= 0 {
			return fmt.Errorf("%w: %s has a malformed rubric criterion", ErrInvalidGame, g.ID)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: %s repeats criterion %q", ErrInvalidGame, g.ID, c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// Lookup returns the game with id.
func (r *Registry) Lookup(id string) (model.Game, error) {
	g, ok := r.games[id]
	if !ok {
		return model.Game{}, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	return g, nil
}

// Games returns every game ordered by id.
func (r *Registry) Games() []model.Game {
	out := make([]model.Game, 0, len(r.games))
	for _, g := range r.games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of games.
func (r *Registry) Len() int { return len(r.games) }
