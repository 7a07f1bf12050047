package pathfind

// Mover receives the outcome of a search made on its behalf.
type Mover interface {
	PathFound(Result)
	PathFailed(Result)
}

// Notify delivers r to m according to its reachability.
func Notify(m Mover, r Result) {
	if r.Reachable {
		m.PathFound(r)
		return
	}
	m.PathFailed(r)
}
