package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Lookup fetches a named string value. ok is false when the name is unknown.
type Lookup interface {
	Lookup(name string) (value string, ok bool)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(name string) (string, bool)

func (f LookupFunc) Lookup(name string) (string, bool) {
	return f(name)
}

// Env returns a Lookup backed by the process environment.
func Env() Lookup {
	return LookupFunc(os.LookupEnv)
}

// MapLookup is a fixed set of values.
type MapLookup map[string]string

func (m MapLookup) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// Chain returns a Lookup that asks each source in order and returns the
// first non-blank value. Nil sources and whitespace-only values are skipped.
func Chain(lookups ...Lookup) Lookup {
	return LookupFunc(func(name string) (string, bool) {
		for _, l := range lookups {
			if l == nil {
				continue
			}
			if v, ok := l.Lookup(name); ok && strings.TrimSpace(v) != "" {
				return v, true
			}
		}
		return "", false
	})
}

// Dotenv reads a .env file into a MapLookup without touching the process
// environment. A missing file yields an empty lookup.
func Dotenv(path string) (MapLookup, error) {
	if path == "" {
		return MapLookup{}, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return MapLookup{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return MapLookup(values), nil
}
