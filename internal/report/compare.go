package report

// Comparison is the result of the compare operation group (§4.10):
// comparing two already-produced reports for the same owner along one of
// four modes, without re-running the pipeline.
type Comparison struct {
	Mode        string   `json:"mode"`
	BaseDumpID  string   `json:"baseDumpId"`
	OtherDumpID string   `json:"otherDumpId"`
	Summary     string   `json:"summary"`
	Added       []string `json:"added,omitempty"`
	Removed     []string `json:"removed,omitempty"`
	Changed     []string `json:"changed,omitempty"`
}
