// Package analytics records A/B test events from the wizard landing page and
// summarises them per variant.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"card-program-wizard/internal/common/config"
	"card-program-wizard/internal/common/ids"
	"card-program-wizard/internal/common/logger"
	"card-program-wizard/internal/common/metrics"
)

const (
	DefaultMaxEvents   = 10000
	DefaultRecentLimit = 100
	DefaultRedisKey    = "wizard:abtest:events"

	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// Variants are the cta/pricing combinations under test.
var Variants = []string{"Alive", "Afinal", "Blive", "Bfinal"}

type Event map[string]interface{}

func (e Event) str(key string) string {
	s, _ := e[key].(string)
	return s
}

type RecordResult struct {
	Success     bool   `json:"success"`
	EventID     string `json:"eventId,omitempty"`
	Message     string `json:"message"`
	TotalEvents int64  `json:"totalEvents,omitempty"`
	Fallback    bool   `json:"fallback,omitempty"`
	Error       string `json:"error,omitempty"`
}

type VariantStats struct {
	Impressions           int    `json:"impressions"`
	Clicks                int    `json:"clicks"`
	Purchases             int    `json:"purchases"`
	ClickRate             string `json:"clickRate"`
	ConversionRate        string `json:"conversionRate"`
	OverallConversionRate string `json:"overallConversionRate"`
}

type Funnel struct {
	Impressions    int    `json:"impressions"`
	Clicks         int    `json:"clicks"`
	Purchases      int    `json:"purchases"`
	ClickRate      string `json:"clickRate"`
	ConversionRate string `json:"conversionRate"`
}

type Report struct {
	Success     bool                    `json:"success"`
	Message     string                  `json:"message,omitempty"`
	Fallback    bool                    `json:"fallback,omitempty"`
	TotalEvents int                     `json:"totalEvents"`
	Summary     map[string]VariantStats `json:"summary"`
	Funnel      Funnel                  `json:"funnel"`
	Events      []Event                 `json:"events"`
	Timestamp   string                  `json:"timestamp,omitempty"`
}

type Recorder struct {
	store       Store
	fallback    bool
	recentLimit int
	logger      logger.Logger
	now         func() time.Time
}

// NewRecorder records into store. A nil store selects an in-memory ring and
// every response is then flagged as a fallback.
func NewRecorder(store Store, cfg config.AnalyticsConfig, log logger.Logger) *Recorder {
	maxEvents := cfg.MaxEvents
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	recent := cfg.RecentLimit
	if recent <= 0 {
		recent = DefaultRecentLimit
	}

	r := &Recorder{
		store:       store,
		recentLimit: recent,
		logger:      logger.ForComponent(log, "analytics"),
		now:         time.Now,
	}
	if store == nil {
		r.store = NewMemoryStore(maxEvents)
		r.fallback = true
	}
	return r
}

// Record stamps and stores one event. Storage failures are reported in the
// result and never returned as errors.
func (r *Recorder) Record(ctx context.Context, event Event) *RecordResult {
	if event == nil {
		event = Event{}
	}
	now := r.now().UTC()
	event["serverTimestamp"] = now.Format(timestampLayout)
	eventID := ids.Event(now)
	event["eventId"] = eventID

	eventType := event.str("eventType")
	if eventType == "" {
		eventType = "unknown"
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return r.failed(eventType, eventID, err)
	}
	total, err := r.store.Append(ctx, payload)
	if err != nil {
		return r.failed(eventType, eventID, err)
	}
	metrics.AnalyticsEventsTotal.WithLabelValues(eventType, r.store.Name()).Inc()

	res := &RecordResult{
		Success:     true,
		EventID:     eventID,
		Message:     "Event recorded successfully",
		TotalEvents: total,
	}
	if r.fallback {
		res.Message = "Event recorded in memory (persistent storage not configured)"
		res.Fallback = true
	}
	return res
}

func (r *Recorder) failed(eventType, eventID string, err error) *RecordResult {
	metrics.AnalyticsEventsTotal.WithLabelValues(eventType, "failed").Inc()
	r.logger.Warn("failed to store analytics event", map[string]interface{}{
		"eventId": eventID,
		"store":   r.store.Name(),
		"error":   err.Error(),
	})
	return &RecordResult{
		Success:  true,
		EventID:  eventID,
		Message:  "Event received (storage unavailable)",
		Fallback: true,
		Error:    err.Error(),
	}
}

// Report summarises every retained event.
func (r *Recorder) Report(ctx context.Context) *Report {
	raw, err := r.store.Recent(ctx, 0)
	if err != nil {
		r.logger.Warn("failed to read analytics events", map[string]interface{}{
			"store": r.store.Name(),
			"error": err.Error(),
		})
		rep := Summarize(nil, r.recentLimit)
		rep.Message = "Storage unavailable"
		rep.Fallback = true
		return rep
	}

	events := make([]Event, 0, len(raw))
	for _, b := range raw {
		var e Event
		if err := json.Unmarshal(b, &e); err != nil {
			r.logger.Debug("skipping malformed analytics event", map[string]interface{}{"error": err.Error()})
			continue
		}
		events = append(events, e)
	}

	rep := Summarize(events, r.recentLimit)
	rep.Fallback = r.fallback
	rep.Timestamp = r.now().UTC().Format(timestampLayout)
	return rep
}

// Summarize computes per-variant and overall funnel figures and keeps the
// newest recent events.
func Summarize(events []Event, recent int) *Report {
	summary := make(map[string]VariantStats, len(Variants))
	counts := make(map[string]*[3]int, len(Variants))
	for _, v := range Variants {
		counts[v] = &[3]int{}
	}
	var total [3]int

	for _, e := range events {
		idx := -1
		switch e.str("eventType") {
		case "impression":
			idx = 0
		case "click":
			idx = 1
		case "purchase":
			idx = 2
		}
		if idx < 0 {
			continue
		}
		total[idx]++
		if c, ok := counts[e.str("ctaVariant")+e.str("pricingVariant")]; ok {
			c[idx]++
		}
	}

	for _, v := range Variants {
		c := counts[v]
		summary[v] = VariantStats{
			Impressions:           c[0],
			Clicks:                c[1],
			Purchases:             c[2],
			ClickRate:             rate(c[1], c[0]),
			ConversionRate:        rate(c[2], c[1]),
			OverallConversionRate: rate(c[2], c[0]),
		}
	}

	tail := events
	if recent > 0 && len(tail) > recent {
		tail = tail[len(tail)-recent:]
	}
	if tail == nil {
		tail = []Event{}
	}

	return &Report{
		Success:     true,
		TotalEvents: len(events),
		Summary:     summary,
		Funnel: Funnel{
			Impressions:    total[0],
			Clicks:         total[1],
			Purchases:      total[2],
			ClickRate:      rate(total[1], total[0]),
			ConversionRate: rate(total[2], total[1]),
		},
		Events: tail,
	}
}

func rate(num, den int) string {
	if den == 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", float64(num)/float64(den)*100)
}
