package models

import "time"

const (
	AnalyticsWikiCodes    = "wiki_codes"
	AnalyticsHoyolabCodes = "hoyolab_codes"

	RecordSendWikiCodes = "send_wiki_codes"
	RecordPublish       = "publish"
)

// PublishStats are the per-recipient outcome counters of one fan-out
type PublishStats struct {
	Success   int `bson:"success" json:"success"`
	Failed    int `bson:"failed" json:"failed"`
	Forbidden int `bson:"forbidden" json:"forbidden"`
	NoChannel int `bson:"no_channel" json:"no_channel"`
	NoRole    int `bson:"no_role" json:"no_role"`
}

// Total counts every recipient once. NoRole is not part of it because
// those recipients are still delivered to.
func (s PublishStats) Total() int {
	return s.Success + s.Failed + s.Forbidden + s.NoChannel
}

// PublishRecord is the analytics document written after a fan-out
type PublishRecord struct {
	Type    string       `bson:"type" json:"type"`
	Game    Game         `bson:"game" json:"game"`
	Version string       `bson:"version,omitempty" json:"version,omitempty"`
	RunID   string       `bson:"run_id" json:"run_id"`
	Time    time.Time    `bson:"time" json:"time"`
	Stats   PublishStats `bson:"stats" json:"stats"`
}
