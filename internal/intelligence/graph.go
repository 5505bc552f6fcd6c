package intelligence

import (
	"path"
	"regexp"
	"sort"
	"strings"
)

var importPatterns = []*regexp.Regexp{
	// import x from './a', import { a } from "./a", import './a.css'
	regexp.MustCompile(`\bimport\s+(?:type\s+)?(?:[^'"();]*?\s+from\s+)?['"]([^'"\n]+)['"]`),
	// export { a } from './a', export * from './a'
	regexp.MustCompile(`\bexport\s+(?:type\s+)?(?:\*(?:\s+as\s+\w+)?|\{[^}]*\})\s+from\s+['"]([^'"\n]+)['"]`),
	// require('./a'), import('./a')
	regexp.MustCompile(`\b(?:require|import)\(\s*['"]([^'"\n]+)['"]\s*\)`),
}

var resolveExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".json"}

// Graph is the resolved import graph of a file set. Only imports that
// resolve to a file in the set are recorded.
type Graph struct {
	Imports    map[string][]string `json:"imports"`
	Dependents map[string][]string `json:"dependents"`
}

// ImportsOf returns the files path imports, or an empty list.
func (g *Graph) ImportsOf(p string) []string {
	return copyOrEmpty(g.Imports[p])
}

// DependentsOf returns the files importing path, or an empty list.
func (g *Graph) DependentsOf(p string) []string {
	return copyOrEmpty(g.Dependents[p])
}

func copyOrEmpty(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// parseSpecifiers returns the raw module specifiers referenced by content.
func parseSpecifiers(content string) []string {
	var specs []string
	for _, re := range importPatterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			specs = append(specs, m[1])
		}
	}
	return specs
}

// resolveSpecifier maps a specifier written in importer onto a file of the
// set. Bare package imports ("react") never resolve.
func resolveSpecifier(importer, spec string, exists func(string) bool) (string, bool) {
	var base string
	switch {
	case strings.HasPrefix(spec, "@/"):
		base = path.Join("/src", spec[2:])
	case strings.HasPrefix(spec, "./"), strings.HasPrefix(spec, "../"):
		base = path.Join(path.Dir(importer), spec)
	case strings.HasPrefix(spec, "/"):
		base = path.Clean(spec)
	default:
		return "", false
	}

	if exists(base) {
		return base, true
	}
	for _, ext := range resolveExtensions {
		if exists(base + ext) {
			return base + ext, true
		}
	}
	for _, ext := range resolveExtensions {
		if idx := base + "/index" + ext; exists(idx) {
			return idx, true
		}
	}
	return "", false
}

func buildGraph(files map[string]File) *Graph {
	g := &Graph{
		Imports:    make(map[string][]string),
		Dependents: make(map[string][]string),
	}
	exists := func(p string) bool {
		_, ok := files[p]
		return ok
	}

	for p, f := range files {
		seen := make(map[string]bool)
		for _, spec := range parseSpecifiers(f.Content) {
			target, ok := resolveSpecifier(p, spec, exists)
			if !ok || target == p || seen[target] {
				continue
			}
			seen[target] = true
			g.Imports[p] = append(g.Imports[p], target)
			g.Dependents[target] = append(g.Dependents[target], p)
		}
	}
	for _, m := range []map[string][]string{g.Imports, g.Dependents} {
		for _, list := range m {
			sort.Strings(list)
		}
	}
	return g
}

// FileImportance is a file's structural centrality in the import graph.
type FileImportance struct {
	Path      string  `json:"path"`
	Score     float64 `json:"score"`
	InDegree  int     `json:"in_degree"`
	OutDegree int     `json:"out_degree"`
}

const (
	inDegreeWeight  = 0.7
	outDegreeWeight = 0.3
)

// rankImportance scores every file as 0.7·in/maxIn + 0.3·out/maxOut and
// returns them in descending order.
func rankImportance(files map[string]File, g *Graph) []FileImportance {
	maxIn, maxOut := 0, 0
	for p := range files {
		maxIn = max(maxIn, len(g.Dependents[p]))
		maxOut = max(maxOut, len(g.Imports[p]))
	}

	out := make([]FileImportance, 0, len(files))
	for p := range files {
		in, o := len(g.Dependents[p]), len(g.Imports[p])
		var score float64
		if maxIn > 0 {
			score += inDegreeWeight * float64(in) / float64(maxIn)
		}
		if maxOut > 0 {
			score += outDegreeWeight * float64(o) / float64(maxOut)
		}
		out = append(out, FileImportance{Path: p, Score: score, InDegree: in, OutDegree: o})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Path < out[j].Path
	})
	return out
}
