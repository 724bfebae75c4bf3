package query

import (
	"strings"

	"github.com/geoplex/stacmosaic/internal/domain"
)

// Selection names the assets a request reads: an explicit asset list,
// a band-math expression referencing asset names, or both.
type Selection struct {
	Assets     []string
	Expression string
}

// Validate rejects a selection that names nothing to read.
func (s Selection) Validate() error {
	if len(s.Assets) == 0 && s.Expression == "" {
		return domain.ErrMissingAssetSelection
	}
	return nil
}

// AssetNames returns the ordered, deduplicated set of asset names the
// selection references: the explicit list first, then identifiers
// extracted from the expression in appearance order.
func (s Selection) AssetNames() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, a := range s.Assets {
		if a != "" {
			add(a)
		}
	}
	for _, ident := range expressionIdents(s.Expression) {
		add(ident)
	}
	return out
}

// expressionIdents scans a band-math expression for identifiers.
// Identifiers immediately followed by "(" are function calls, not
// asset references, and are skipped.
func expressionIdents(expr string) []string {
	var idents []string
	i := 0
	for i < len(expr) {
		c := expr[i]
		if !isIdentStart(c) {
			i++
			continue
		}
		j := i + 1
		for j < len(expr) && isIdentPart(expr[j]) {
			j++
		}
		name := expr[i:j]
		rest := strings.TrimLeft(expr[j:], " \t")
		if !strings.HasPrefix(rest, "(") {
			idents = append(idents, name)
		}
		i = j
	}
	return idents
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
