package middleware

import "strings"

// Routes classifies request paths as public or protected.
//
// An entry ending in "/" matches every path under it. Any other entry
// matches itself and its sub-paths ("/health" covers "/health/live").
// The root entry "/" matches only the root, so listing it never opens
// the whole API.
type Routes struct {
	exact    map[string]struct{}
	prefixes []string
}

func NewRoutes(public []string) Routes {
	r := Routes{exact: make(map[string]struct{})}
	for _, p := range public {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
		case p == "/":
			r.exact["/"] = struct{}{}
		case strings.HasSuffix(p, "/"):
			r.exact[strings.TrimSuffix(p, "/")] = struct{}{}
			r.prefixes = append(r.prefixes, p)
		default:
			r.exact[p] = struct{}{}
			r.prefixes = append(r.prefixes, p+"/")
		}
	}
	return r
}

// IsProtected reports whether path requires a valid bearer token.
func (r Routes) IsProtected(path string) bool {
	if path == "" {
		path = "/"
	}
	if _, ok := r.exact[path]; ok {
		return false
	}
	for _, prefix := range r.prefixes {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}
