package urlx

import "testing"

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2021", "2021/01/01 00:00:00", true},
		{"202103", "2021/03/01 00:00:00", true},
		{"20210315", "2021/03/15 00:00:00", true},
		{"2021031512", "2021/03/15 12:00:00", true},
		{"202103151230", "2021/03/15 12:30:00", true},
		{"20210315123045", "2021/03/15 12:30:45", true},
		{"not-a-date", "", false},
		{"", "", false},
		{"20211332", "", false},
	}
	for _, c := range cases {
		got, ok := ParseTimestamp(c.in)
		if got != c.want || ok != c.ok {
			t.Fatalf("ParseTimestamp(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}
