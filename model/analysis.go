package model

// HubActor is an actor ranked by its degree
type HubActor struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Degree     int    `json:"degree"`
	MovieCount int    `json:"movieCount"`
}

// BridgeActor is an actor ranked by how many of its neighbor pairs only it connects
type BridgeActor struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Degree      int    `json:"degree"`
	BridgeScore int    `json:"bridgeScore"`
}

// GraphStats summarizes the degree distribution of a graph
type GraphStats struct {
	ActorCount      int     `json:"actorCount"`
	ConnectionCount int     `json:"connectionCount"`
	AverageDegree   float64 `json:"averageDegree"`
	MaxDegree       int     `json:"maxDegree"`
	MinDegree       int     `json:"minDegree"`
	Density         float64 `json:"density"`
	Components      int     `json:"components"`
}

// PathStep is one actor of a shortest path, Via is empty for the first actor
type PathStep struct {
	ActorID string `json:"actorId"`
	Label   string `json:"label"`
	Via     []Film `json:"via,omitempty"`
}

// AnalysisKind selects the analysis to run on a stored graph
type AnalysisKind string

const (
	AnalysisHubs         AnalysisKind = "hubs"
	AnalysisBridges      AnalysisKind = "bridges"
	AnalysisShortestPath AnalysisKind = "shortest_path"
	AnalysisSubgraph     AnalysisKind = "subgraph"
	AnalysisStats        AnalysisKind = "stats"
)

// AnalysisRequest describes one analysis, only the fields of the selected kind are used
type AnalysisRequest struct {
	Kind   AnalysisKind `json:"kind"`
	TopN   int          `json:"top_n,omitempty"`
	From   string       `json:"from,omitempty"`
	To     string       `json:"to,omitempty"`
	Center string       `json:"center,omitempty"`
	Depth  int          `json:"depth,omitempty"`
}

// Analysis is the result of an AnalysisRequest, exactly one field besides Kind is set
type Analysis struct {
	Kind     AnalysisKind  `json:"kind"`
	Hubs     []HubActor    `json:"hubs,omitempty"`
	Bridges  []BridgeActor `json:"bridges,omitempty"`
	Path     []PathStep    `json:"path,omitempty"`
	Subgraph *Graph        `json:"subgraph,omitempty"`
	Stats    *GraphStats   `json:"stats,omitempty"`
}
