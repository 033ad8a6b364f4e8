package trigger

// HostGroup is the triggers owned by one host.
type HostGroup struct {
	HostID   string    `json:"host_id"`
	Hostname string    `json:"hostname,omitempty"`
	Triggers []Trigger `json:"triggers"`
}

// GroupByHost groups triggers by owning host. Hosts appear in order of
// their first trigger, and triggers keep their source order within a group.
func GroupByHost(triggers []Trigger) []HostGroup {
	var groups []HostGroup
	index := make(map[string]int)
	for i := range triggers {
		t := triggers[i]
		pos, ok := index[t.HostID]
		if !ok {
			pos = len(groups)
			index[t.HostID] = pos
			groups = append(groups, HostGroup{HostID: t.HostID})
		}
		g := &groups[pos]
		if g.Hostname == "" {
			g.Hostname = t.Hostname
		}
		g.Triggers = append(g.Triggers, t)
	}
	return groups
}
