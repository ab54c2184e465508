package urlx

import "time"

// CDX timestamps come truncated to anywhere between year and full second
// precision. First matching layout wins.
var timestampLayouts = []string{
	"2006",
	"200601",
	"20060102",
	"2006010215",
	"200601021504",
	"20060102150405",
}

// ParseTimestamp renders an archive timestamp as "YYYY/MM/DD HH:MM:SS".
// Unparsable input reports ok=false rather than an error; a missing parsed
// timestamp is not fatal to the surrounding record.
func ParseTimestamp(ts string) (string, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.Format("2006/01/02 15:04:05"), true
		}
	}
	return "", false
}
