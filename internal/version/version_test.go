package version

import (
	"regexp"
	"testing"
)

func TestGet(t *testing.T) {
	if !regexp.MustCompile(`^\d+\.\d+\.\d+`).MatchString(Get()) {
		t.Errorf("Get() = %q, want a semantic version", Get())
	}
}

func TestFull(t *testing.T) {
	old := commit
	defer func() { commit = old }()

	commit = ""
	if Full() != Get() {
		t.Errorf("Full() = %q, want %q", Full(), Get())
	}

	commit = "abc1234"
	if want := Get() + " (abc1234)"; Full() != want {
		t.Errorf("Full() = %q, want %q", Full(), want)
	}
}
