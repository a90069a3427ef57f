package validation

import "testing"

func TestIsValidIdentifier(t *testing.T) {
	valid := []string{"users", "user_accounts", "_tmp", "Table1", " padded "}
	for _, s := range valid {
		if !IsValidIdentifier(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}

	invalid := []string{"", "1users", "user-accounts", "users; drop table", "select", "TABLE"}
	for _, s := range invalid {
		if IsValidIdentifier(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}
