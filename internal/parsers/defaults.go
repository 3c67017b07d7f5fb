package parsers

import "log/slog"

// NewDefaultRegistry wires the known vendors. Adding a vendor is one
// Register call here; no other code path changes.
func NewDefaultRegistry(log *slog.Logger) *Registry {
	r := NewRegistry()
	r.Register("lacastellana", []string{"LCA920512HF7", "LA CASTELLANA"}, NewLaCastellana(log))
	r.Register("vinosdelsur", []string{"VSU850101AB3", "VINOS DEL SUR"}, NewVinosDelSur(log))
	r.Register("eurovinos", []string{"EVI011231QZ8", "EUROVINOS"}, NewEurovinos(log))
	return r
}
