package metrics

import (
	"yqhp/geoanalysis/pkg/types"
)

// MessageSink counts relayed job messages by task and severity.
type MessageSink struct{}

// Relay implements the geoprocessing message sink.
func (MessageSink) Relay(ev types.MessageEvent) {
	JobMessagesTotal.WithLabelValues(ev.Task, string(ev.Message.Type.Severity())).Inc()
}
