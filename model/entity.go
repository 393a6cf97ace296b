package model

// Entity is an actor resolved in the knowledge graph.
// Entities are immutable once resolved, callers only reference them.
type Entity struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	ImageURL    string `json:"image_url,omitempty"`
	Description string `json:"description,omitempty"`
	// Popularity is the sitelink count, used to disambiguate search candidates
	Popularity int `json:"popularity,omitempty"`
}

// EntityIDs returns the ids of the given entities in order
func EntityIDs(entities []Entity) []string {
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.ID)
	}
	return ids
}
