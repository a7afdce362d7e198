package utils

import "testing"

func TestPascalToCamel(t *testing.T) {
	cases := map[string]string{
		"Name":         "name",
		"KdfIterations": "kdfIterations",
		"alreadyCamel": "alreadyCamel",
		"_Status":      "_status",
		"_status":      "_status",
		"access_token": "access_token",
		"ID":           "iD",
		"":             "",
		"_":            "_",
	}
	for in, want := range cases {
		if got := PascalToCamel(in); got != want {
			t.Errorf("PascalToCamel(%q) = %q, want %q", in, got, want)
		}
	}
}
