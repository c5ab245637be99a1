package model

import "time"

// RawLog is the intermediate type produced by connectors and turned into a
// document by the pipeline.
type RawLog struct {
	Timestamp time.Time
	Source    string         // connector name (e.g. "file", "httppoll")
	Raw       string         // original log text; empty when Fields holds the whole record
	Fields    map[string]any // structured fields decoded by the connector
}
