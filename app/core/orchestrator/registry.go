package orchestrator

import "strings"

// WorkerAgent is a capability descriptor for an externally deployed
// executor. Behavior differences between agents live behind their
// endpoints, not in per-agent types here.
type WorkerAgent struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Endpoint string `json:"endpoint"`
}

// Registry is the closed set of worker agents tasks can target.
type Registry struct {
	byName     map[string]WorkerAgent
	byCategory map[string]WorkerAgent
	order      []string
}

func NewRegistry(agents []WorkerAgent) *Registry {
	r := &Registry{
		byName:     make(map[string]WorkerAgent, len(agents)),
		byCategory: make(map[string]WorkerAgent, len(agents)),
	}
	for _, agent := range agents {
		name := strings.TrimSpace(agent.Name)
		if name == "" {
			continue
		}
		agent.Name = name
		if _, exists := r.byName[name]; exists {
			continue
		}
		r.byName[name] = agent
		r.order = append(r.order, name)
		// first agent registered for a category wins
		if _, exists := r.byCategory[agent.Category]; !exists && agent.Category != "" {
			r.byCategory[agent.Category] = agent
		}
	}
	return r
}

func (r *Registry) Lookup(name string) (WorkerAgent, bool) {
	agent, ok := r.byName[strings.TrimSpace(name)]
	return agent, ok
}

func (r *Registry) ByCategory(category string) (WorkerAgent, bool) {
	agent, ok := r.byCategory[category]
	return agent, ok
}

// Agents returns the registered agents in registration order.
func (r *Registry) Agents() []WorkerAgent {
	out := make([]WorkerAgent, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}
