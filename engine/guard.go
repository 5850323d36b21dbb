package engine

// apiGuard implements the nested-entry-count mechanism of §4.2/§5: every
// public engine call enters through it. On first entry it cancels any
// scheduled tick and accounts for elapsed time; on last exit it compacts
// completed operations and reprograms the next tick. It tolerates
// re-entrancy from user callbacks fired synchronously during a call, which
// is why it is a plain counter and not a mutex (§9: "single-threaded
// cooperative with re-entrant callbacks").
type apiGuard struct {
	depth int
}

// enter returns true the first time the guard is entered in this call
// stack; the caller only runs the tick-accounting preamble when it does.
func (g *apiGuard) enter() (isOutermost bool) {
	g.depth++
	return g.depth == 1
}

// exit returns true when this is the outermost call unwinding; the caller
// only compacts the registry and reprograms the tick when it does.
func (g *apiGuard) exit() (isOutermost bool) {
	g.depth--
	return g.depth == 0
}
