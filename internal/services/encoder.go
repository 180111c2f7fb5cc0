package services

import (
	"sort"
	"sync"
	"time"

	"nexus-analytics/internal/errors"
	"nexus-analytics/internal/models"
)

// CalendarFeatures is the temporal decomposition of a sale date.
// DayOfWeek is Monday=0, DayOfYear is 1-based, Week is the ISO week.
type CalendarFeatures struct {
	Year      int
	Month     int
	Day       int
	DayOfWeek int
	DayOfYear int
	Week      int
}

func CalendarFrom(t time.Time) CalendarFeatures {
	_, week := t.ISOWeek()
	return CalendarFeatures{
		Year:      t.Year(),
		Month:     int(t.Month()),
		Day:       t.Day(),
		DayOfWeek: (int(t.Weekday()) + 6) % 7,
		DayOfYear: t.YearDay(),
		Week:      week,
	}
}

// CategoryEncoder maps category labels to dense integer codes. Codes
// are assigned lexicographically over the distinct labels observed in
// the reference table, so a given encoder instance is deterministic;
// two encoders agree only if they saw the same label set.
type CategoryEncoder struct {
	field  string
	codes  map[string]int
	labels []string
}

func newCategoryEncoder(field string, seen map[string]struct{}) *CategoryEncoder {
	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	codes := make(map[string]int, len(labels))
	for i, l := range labels {
		codes[l] = i
	}
	return &CategoryEncoder{field: field, codes: codes, labels: labels}
}

// Code maps a label to its dense code. Unseen labels fall back to the
// sentinel code 0 with ok=false so callers can surface the precision
// loss. Encoding against an empty domain fails outright: an encoder
// built from an empty table must not silently return 0.
func (e *CategoryEncoder) Code(label string) (code int, ok bool, err error) {
	if len(e.codes) == 0 {
		return 0, false, errors.DataUnavailable("encoder for " + e.field + " has an empty domain")
	}
	code, ok = e.codes[label]
	if !ok {
		return 0, false, nil
	}
	return code, true, nil
}

// Label is the inverse mapping.
func (e *CategoryEncoder) Label(code int) (string, bool) {
	if code < 0 || code >= len(e.labels) {
		return "", false
	}
	return e.labels[code], true
}

func (e *CategoryEncoder) Len() int {
	return len(e.labels)
}

// EncoderSet holds one encoder per categorical Record field, all built
// from the same reference table.
type EncoderSet struct {
	Region        *CategoryEncoder
	SalesRep      *CategoryEncoder
	Category      *CategoryEncoder
	CustomerType  *CategoryEncoder
	PaymentMethod *CategoryEncoder
	Channel       *CategoryEncoder
	RegionRep     *CategoryEncoder
}

// BuildEncoderSet scans the reference table once and builds all
// categorical encoders.
func BuildEncoderSet(records []models.Record) *EncoderSet {
	region := make(map[string]struct{})
	rep := make(map[string]struct{})
	category := make(map[string]struct{})
	customerType := make(map[string]struct{})
	payment := make(map[string]struct{})
	channel := make(map[string]struct{})
	regionRep := make(map[string]struct{})

	for _, r := range records {
		region[r.Region] = struct{}{}
		rep[r.SalesRep] = struct{}{}
		category[r.Category] = struct{}{}
		customerType[r.CustomerType] = struct{}{}
		payment[r.PaymentMethod] = struct{}{}
		channel[r.Channel] = struct{}{}
		regionRep[r.RegionRep()] = struct{}{}
	}

	return &EncoderSet{
		Region:        newCategoryEncoder("region", region),
		SalesRep:      newCategoryEncoder("sales_rep", rep),
		Category:      newCategoryEncoder("category", category),
		CustomerType:  newCategoryEncoder("customer_type", customerType),
		PaymentMethod: newCategoryEncoder("payment_method", payment),
		Channel:       newCategoryEncoder("channel", channel),
		RegionRep:     newCategoryEncoder("region_rep", regionRep),
	}
}

// EncoderCache memoizes the EncoderSet for one dataset version.
// Encoders are rebuilt only when the reference table changes; within a
// version every caller shares the same immutable set.
type EncoderCache struct {
	mu      sync.Mutex
	version int64
	set     *EncoderSet
}

func NewEncoderCache() *EncoderCache {
	return &EncoderCache{version: -1}
}

func (c *EncoderCache) For(version int64, records []models.Record) *EncoderSet {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.set == nil || c.version != version {
		c.set = BuildEncoderSet(records)
		c.version = version
	}
	return c.set
}
