package version

import (
	"regexp"
	"testing"
)

var semverRe = regexp.MustCompile(`^v\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?$`)

func TestVersion_Format(t *testing.T) {
	if !semverRe.MatchString(Version) {
		t.Errorf("Version %q is not a v-prefixed semantic version", Version)
	}
}
