package document

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TimeFormat selects how audit timestamps are rendered in responses,
// requested per call via the X-Time-Format header.
type TimeFormat string

const (
	FormatISO8601           TimeFormat = "ISO-8601"
	FormatISOInstant        TimeFormat = "ISO_INSTANT"
	FormatRFC3339           TimeFormat = "RFC-3339"
	FormatISOOffsetDateTime TimeFormat = "ISO_OFFSET_DATE_TIME"
	FormatUnix              TimeFormat = "UNIX"
	FormatUnixMillis        TimeFormat = "UNIX-MILLIS"
	FormatBasicISODate      TimeFormat = "BASIC_ISO_DATE"
	FormatISOLocalDate      TimeFormat = "ISO_LOCAL_DATE"
	FormatISOLocalDateTime  TimeFormat = "ISO_LOCAL_DATE_TIME"
)

// DefaultTimeFormat is used when the header is absent or unknown.
const DefaultTimeFormat = FormatISO8601

var knownFormats = map[TimeFormat]bool{
	FormatISO8601:           true,
	FormatISOInstant:        true,
	FormatRFC3339:           true,
	FormatISOOffsetDateTime: true,
	FormatUnix:              true,
	FormatUnixMillis:        true,
	FormatBasicISODate:      true,
	FormatISOLocalDate:      true,
	FormatISOLocalDateTime:  true,
}

// ParseTimeFormat maps a header value onto the enumerated set,
// falling back to the default for unknown values.
func ParseTimeFormat(header string) TimeFormat {
	f := TimeFormat(strings.ToUpper(strings.TrimSpace(header)))
	if knownFormats[f] {
		return f
	}
	return DefaultTimeFormat
}

// Render formats t according to the selected format. UNIX variants
// render as numbers, everything else as strings.
func (f TimeFormat) Render(t time.Time) any {
	switch f {
	case FormatISOInstant:
		return t.UTC().Format(time.RFC3339)
	case FormatRFC3339, FormatISOOffsetDateTime:
		return t.Format(time.RFC3339)
	case FormatUnix:
		return t.Unix()
	case FormatUnixMillis:
		return t.UnixMilli()
	case FormatBasicISODate:
		return t.Format("20060102")
	case FormatISOLocalDate:
		return t.Format("2006-01-02")
	case FormatISOLocalDateTime:
		return t.Format("2006-01-02T15:04:05")
	default: // ISO-8601
		return t.Format(time.RFC3339)
	}
}

// RenderAudit rewrites the audit timestamps of doc in place into the
// requested wire representation. Values arrive as time.Time from the
// in-memory store and as primitive.DateTime once decoded from BSON.
func RenderAudit(doc Document, format TimeFormat) {
	for _, field := range []string{FieldCreatedAt, FieldUpdatedAt} {
		switch t := doc[field].(type) {
		case time.Time:
			doc[field] = format.Render(t)
		case primitive.DateTime:
			doc[field] = format.Render(t.Time())
		}
	}
}
