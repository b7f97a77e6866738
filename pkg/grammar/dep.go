package grammar

// Dependency-tree queries over a token slice. All functions are pure and
// return empty results rather than failing: upstream parses are sometimes
// malformed, and "not found" is a normal branch for every caller.

// HeadIndex resolves the head of tokens[i]. Numeric head references are
// returned directly. Textual references are accepted only when exactly one
// token's text or lemma equals the head string; zero or multiple candidates
// return ok=false. An ambiguous head is never guessed.
func HeadIndex(tokens []Token, i int) (int, bool) {
	if i < 0 || i >= len(tokens) {
		return 0, false
	}
	h := tokens[i].Head
	if h.Resolved {
		if h.Index < 0 || h.Index >= len(tokens) {
			return 0, false
		}
		return h.Index, true
	}
	if h.Text == "" {
		return 0, false
	}
	found := -1
	for j := range tokens {
		if j == i {
			continue
		}
		if tokens[j].Text == h.Text || tokens[j].Lemma == h.Text {
			if found >= 0 {
				return 0, false // ambiguous
			}
			found = j
		}
	}
	if found < 0 {
		return 0, false
	}
	return found, true
}

// Children returns every token whose resolved head is the token at head.
func Children(tokens []Token, head int) []Token {
	var out []Token
	for i := range tokens {
		if i == head {
			continue
		}
		if h, ok := HeadIndex(tokens, i); ok && h == head {
			out = append(out, tokens[i])
		}
	}
	return out
}

// Descendants returns the transitive children of head up to maxDepth levels.
// The depth bound keeps traversal finite on cyclic or malformed trees.
func Descendants(tokens []Token, head, maxDepth int) []Token {
	if maxDepth <= 0 {
		return nil
	}
	var out []Token
	seen := map[int]bool{head: true}
	frontier := []int{head}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []int
		for _, h := range frontier {
			for _, c := range Children(tokens, h) {
				if seen[c.Index] {
					continue
				}
				seen[c.Index] = true
				out = append(out, c)
				next = append(next, c.Index)
			}
		}
		frontier = next
	}
	return out
}

// InSameClause reports whether no subordinating conjunction or comma lies
// strictly between token indices a and b. It is a cheap proxy for "same
// finite clause" used to reject spurious long-distance matches.
func InSameClause(tokens []Token, a, b int) bool {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	for i := lo + 1; i < hi && i < len(tokens); i++ {
		if i < 0 {
			continue
		}
		t := tokens[i]
		if t.POS == "SCONJ" || t.Tag == "KOUS" {
			return false
		}
		if t.Text == "," {
			return false
		}
	}
	return true
}
