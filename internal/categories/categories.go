// apps/go-server/internal/categories/categories.go
//
// Card category catalogue: the labels dealt as regular pairs, each with a
// logo URL for the client.
//
// Responsibilities:
//   - Load the catalogue from a file (CATEGORIES_FILE, passed in by main) or
//     fall back to the embedded assets/categories.txt.
//   - Reject empty lists and duplicate names.
//   - Expose Names (for the deck) and Logo (for views).
//
// File format:
//   One category per line: "Name LogoURL". The URL is optional.
//   Blank lines and lines starting with '#' are skipped.
//
// Initialization is run once (sync.Once).

package categories

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/robalobadob/memory/apps/go-server/assets"
)

var (
	ErrEmpty     = errors.New("categories: list is empty")
	ErrDuplicate = errors.New("categories: duplicate name")
)

// Category is one label with its logo.
type Category struct {
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

var (
	initOnce   sync.Once
	list       []Category
	logos      map[string]string
	source     string
	initialErr error
)

// Init loads the catalogue from path (embedded default when empty) exactly once.
func Init(path string) error {
	initOnce.Do(func() {
		cats, err := Load(path)
		if err != nil {
			initialErr = err
			return
		}
		list = cats
		logos = make(map[string]string, len(cats))
		for _, c := range cats {
			logos[c.Name] = c.Logo
		}
		source = "embedded"
		if path != "" {
			source = path
		}
	})
	return initialErr
}

// Load reads a catalogue from path, or from the embedded default when path
// is empty.
func Load(path string) ([]Category, error) {
	var (
		lines []string
		err   error
	)
	if path == "" {
		lines, err = assets.CategoriesList()
	} else {
		lines, err = readLines(path)
	}
	if err != nil {
		return nil, fmt.Errorf("categories: read %s: %w", describe(path), err)
	}
	return parse(lines)
}

func describe(path string) string {
	if path == "" {
		return "embedded list"
	}
	return path
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

func parse(lines []string) ([]Category, error) {
	out := make([]Category, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		c := Category{Name: fields[0]}
		if len(fields) > 1 {
			c.Logo = fields[1]
		}
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicate, c.Name)
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}

// All returns a copy of the loaded catalogue.
func All() []Category {
	return append([]Category(nil), list...)
}

// Names returns the category names in file order.
func Names() []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.Name
	}
	return out
}

// Logo returns the logo URL for name, or "" if none is known.
func Logo(name string) string {
	return logos[name]
}

// Source reports where the catalogue was loaded from.
func Source() string { return source }
