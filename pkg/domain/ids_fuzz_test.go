package domain

import (
	"strings"
	"testing"
)

// idParsers reduces every typed parser to (canonical string, error) so one
// fuzz body can hold them all to the same contract.
var idParsers = map[string]func(string) (string, error){
	"actor":        func(s string) (string, error) { v, err := ParseActorID(s); return v.String(), err },
	"organization": func(s string) (string, error) { v, err := ParseOrganizationID(s); return v.String(), err },
	"case":         func(s string) (string, error) { v, err := ParseCaseID(s); return v.String(), err },
	"evidence":     func(s string) (string, error) { v, err := ParseEvidenceID(s); return v.String(), err },
	"custody":      func(s string) (string, error) { v, err := ParseCustodyRecordID(s); return v.String(), err },
	"audit":        func(s string) (string, error) { v, err := ParseAuditEntryID(s); return v.String(), err },
	"template":     func(s string) (string, error) { v, err := ParseTemplateID(s); return v.String(), err },
	"response":     func(s string) (string, error) { v, err := ParseResponseID(s); return v.String(), err },
}

// FuzzParseIDs checks that parsing never panics, that every ID type accepts
// exactly the same inputs, and that an accepted ID round-trips through String
// as a non-nil lowercase value.
func FuzzParseIDs(f *testing.F) {
	for _, seed := range []string{
		"550e8400-e29b-41d4-a716-446655440000",
		"550E8400-E29B-41D4-A716-446655440000",
		"{550e8400-e29b-41d4-a716-446655440000}",
		"urn:uuid:550e8400-e29b-41d4-a716-446655440000",
		"00000000-0000-0000-0000-000000000000",
		"",
		"   ",
		"not-a-uuid",
		"550e8400-e29b-41d4-a716-44665544000",
		"550e8400e29b41d4a716446655440000",
		"550e8400-e29b-41d4-a716-446655440000\x00",
		"' OR 1=1 --",
		"../../etc/passwd",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		var accepted, rejected []string
		for name, parse := range idParsers {
			canonical, err := parse(input)
			if err != nil {
				rejected = append(rejected, name)
				continue
			}
			accepted = append(accepted, name)

			if canonical == "00000000-0000-0000-0000-000000000000" {
				t.Fatalf("%s: nil id accepted for %q", name, input)
			}
			if canonical != strings.ToLower(canonical) {
				t.Fatalf("%s: non-canonical string %q", name, canonical)
			}
			again, err := parse(canonical)
			if err != nil || again != canonical {
				t.Fatalf("%s: round trip of %q gave %q, %v", name, canonical, again, err)
			}
		}
		if len(accepted) > 0 && len(rejected) > 0 {
			t.Fatalf("parsers disagree on %q: accepted by %v, rejected by %v", input, accepted, rejected)
		}
	})
}
