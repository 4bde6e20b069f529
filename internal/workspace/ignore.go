package workspace

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ignoreRule is one parsed .gitignore line.
type ignoreRule struct {
	glob     string // without leading "/", trailing "/" or "!"
	negate   bool
	dirOnly  bool
	anchored bool // matched against the whole relative path, not the base name
}

// ignoreList holds .gitignore rules plus fixed exclusions. The last matching
// rule wins, and a path inside an ignored directory is always ignored.
type ignoreList struct {
	rules []ignoreRule
}

func loadIgnoreList(workDir string) *ignoreList {
	l := &ignoreList{}
	f, err := os.Open(filepath.Join(workDir, ".gitignore"))
	if err != nil {
		return l
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		l.add(sc.Text())
	}
	return l
}

func (l *ignoreList) add(line string) {
	if r, ok := parseIgnoreRule(line); ok {
		l.rules = append(l.rules, r)
	}
}

// excludeDir ignores a directory given relative to the work dir.
func (l *ignoreList) excludeDir(rel string) {
	rel = filepath.ToSlash(filepath.Clean(rel))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return
	}
	l.add("/" + rel + "/")
}

func parseIgnoreRule(line string) (ignoreRule, bool) {
	line = strings.TrimRight(line, " \t")
	if line == "" || line[0] == '#' {
		return ignoreRule{}, false
	}

	var r ignoreRule
	if line[0] == '!' {
		r.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimRight(line, "/")
	}
	switch {
	case strings.HasPrefix(line, "/"):
		r.anchored = true
		line = strings.TrimPrefix(line, "/")
	case strings.HasPrefix(line, "**/"):
	case strings.Contains(line, "/"):
		r.anchored = true
	}
	if line == "" {
		return ignoreRule{}, false
	}
	r.glob = line
	return r, true
}

// Ignored reports whether rel (slash or OS separated) is excluded.
func (l *ignoreList) Ignored(rel string, isDir bool) bool {
	if len(l.rules) == 0 {
		return false
	}
	rel = filepath.ToSlash(rel)

	for i := 0; i < len(rel); i++ {
		if rel[i] == '/' && l.match(rel[:i], true) {
			return true
		}
	}
	return l.match(rel, isDir)
}

func (l *ignoreList) match(rel string, isDir bool) bool {
	ignored := false
	for _, r := range l.rules {
		if r.dirOnly && !isDir {
			continue
		}
		if r.matches(rel) {
			ignored = !r.negate
		}
	}
	return ignored
}

func (r ignoreRule) matches(rel string) bool {
	g := r.glob
	switch {
	case strings.HasPrefix(g, "**/"):
		return matchAnyDepth(g[3:], rel)
	case strings.HasSuffix(g, "/**"):
		prefix := strings.TrimSuffix(g, "/**")
		return rel == prefix || strings.HasPrefix(rel, prefix+"/")
	case strings.Contains(g, "/**/"):
		prefix, suffix, _ := strings.Cut(g, "/**/")
		rest, ok := strings.CutPrefix(rel, prefix+"/")
		return ok && matchAnyDepth(suffix, rest)
	case r.anchored:
		return globMatch(g, rel)
	default:
		return globMatch(g, path.Base(rel))
	}
}

// matchAnyDepth matches g against rel or any of its trailing segments.
func matchAnyDepth(g, rel string) bool {
	for {
		if globMatch(g, rel) {
			return true
		}
		_, rest, ok := strings.Cut(rel, "/")
		if !ok {
			return false
		}
		rel = rest
	}
}

func globMatch(g, name string) bool {
	ok, _ := path.Match(g, name)
	return ok
}
