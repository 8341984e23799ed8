package core

// Analysis describes one catalog entry: a single analysis script that is
// converted and executed by the pipeline.
type Analysis struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// ScriptName returns the file name of the analysis script, "<id>.sql".
func (a Analysis) ScriptName() string {
	return a.ID + ".sql"
}

// MergeUnitID identifies the merge script in run history and events.
const MergeUnitID = "merge"
