package loader

import (
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// maxSuggestDistance bounds how far a candidate crate name may be from the
// requested one before it stops being worth suggesting.
const maxSuggestDistance = 3

// knownCrates scans the search paths for artifact filenames and returns the
// crate names they imply, deduplicated and sorted.
func (l *Locator) knownCrates() []string {
	seen := map[string]bool{}
	for _, sp := range l.paths {
		infos, err := afero.ReadDir(l.fs, sp.Dir)
		if err != nil {
			continue
		}
		for _, info := range infos {
			if info.IsDir() {
				continue
			}
			if name, ok := crateNameFromFile(info.Name()); ok {
				seen[name] = true
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// crateNameFromFile recovers a crate name from an artifact filename.
func crateNameFromFile(file string) (string, bool) {
	var name string
	switch {
	case strings.HasPrefix(file, "lib") && strings.HasSuffix(file, ".qso"):
		name = strings.TrimSuffix(strings.TrimPrefix(file, "lib"), ".qso")
	case strings.HasPrefix(file, "lib") && strings.HasSuffix(file, ".qar"):
		name = strings.TrimSuffix(strings.TrimPrefix(file, "lib"), ".qar")
	case strings.HasSuffix(file, ".qmeta"):
		name = strings.TrimSuffix(file, ".qmeta")
	}
	return name, name != ""
}

// suggestCrate returns the known crate name closest to target, or "" when
// nothing is close enough.
func suggestCrate(target string, candidates []string) string {
	best := ""
	bestDist := maxSuggestDistance + 1
	for _, c := range candidates {
		d := editDistance(strings.ToLower(target), strings.ToLower(c))
		if d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best
}

// editDistance is the Levenshtein distance between two strings.
func editDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	cur := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s1); i++ {
		cur[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			cur[j] = minOf(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(s2)]
}

func minOf(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
