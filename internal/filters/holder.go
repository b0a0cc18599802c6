// Package filters holds the dashboard's current report filter and
// auto-refresh flag, each as an independent replay-last stream.
package filters

import (
	"transferdash/internal/core"
	"transferdash/internal/stream"
)

type Holder struct {
	filter      *stream.Subject[core.ReportFilter]
	autoRefresh *stream.Subject[bool]
}

// NewHolder starts with an empty filter and auto-refresh on.
func NewHolder() *Holder {
	return &Holder{
		filter:      stream.NewSubject(core.ReportFilter{}),
		autoRefresh: stream.NewSubject(true),
	}
}

// SetFilter replaces the filter wholesale.
func (h *Holder) SetFilter(f core.ReportFilter) {
	h.filter.Publish(f)
}

// SetAutoRefresh publishes enabled even when it equals the current value.
func (h *Holder) SetAutoRefresh(enabled bool) {
	h.autoRefresh.Publish(enabled)
}

func (h *Holder) Filter() core.ReportFilter { return h.filter.Value() }

func (h *Holder) AutoRefresh() bool { return h.autoRefresh.Value() }

func (h *Holder) SubscribeFilter(fn func(core.ReportFilter)) stream.Subscription {
	return h.filter.Subscribe(fn)
}

func (h *Holder) SubscribeAutoRefresh(fn func(bool)) stream.Subscription {
	return h.autoRefresh.Subscribe(fn)
}
