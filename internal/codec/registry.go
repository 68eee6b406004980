package codec

import (
	"sort"
	"strings"
	"sync"
)

var (
	mu       sync.RWMutex
	byName   = make(map[string]Codec)
	bySuffix = make(map[string]Codec)
)

// Register adds a codec to the registry. Registering a codec with a name or
// suffix that is already taken replaces the previous one. Plain cannot be
// registered since it has no suffix.
func Register(c Codec) {
	if c == nil || c.Suffix() == "" {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	byName[c.Name()] = c
	bySuffix[strings.ToLower(c.Suffix())] = c
}

// Lookup returns the codec registered under name. "plain" always resolves to Plain.
func Lookup(name string) (Codec, bool) {
	if name == Plain.Name() {
		return Plain, true
	}
	mu.RLock()
	defer mu.RUnlock()
	c, ok := byName[name]
	return c, ok
}

// ForSuffix returns the codec registered for suffix (".gz", ".zst", ...).
// Matching ignores case.
func ForSuffix(suffix string) (Codec, bool) {
	if suffix == "" {
		return nil, false
	}
	mu.RLock()
	defer mu.RUnlock()
	c, ok := bySuffix[strings.ToLower(suffix)]
	return c, ok
}

// Names lists the registered codec names in sorted order, excluding plain.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
