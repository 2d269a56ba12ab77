package env

import (
	"reflect"
	"testing"
	"time"
)

func TestHelpers(t *testing.T) {
	t.Setenv("OCRWEB_TEST_INT", "42")
	t.Setenv("OCRWEB_TEST_BAD_INT", "many")
	t.Setenv("OCRWEB_TEST_FLOAT", "2.5")
	t.Setenv("OCRWEB_TEST_BOOL", "off")
	t.Setenv("OCRWEB_TEST_DUR", "90s")
	t.Setenv("OCRWEB_TEST_SECS", "15")
	t.Setenv("OCRWEB_TEST_BAD_DUR", "soon")
	t.Setenv("OCRWEB_TEST_BLANK", "  ")
	t.Setenv("OCRWEB_TEST_LIST", "chi_sim+ +eng")

	if got := Int("OCRWEB_TEST_INT", 1); got != 42 {
		t.Fatalf("int: got %d", got)
	}
	if got := Int("OCRWEB_TEST_BAD_INT", 7); got != 7 {
		t.Fatalf("bad int should fall back, got %d", got)
	}
	if got := Float("OCRWEB_TEST_FLOAT", 1); got != 2.5 {
		t.Fatalf("float: got %v", got)
	}
	if Bool("OCRWEB_TEST_BOOL", true) {
		t.Fatalf("off should be false")
	}
	if !Bool("OCRWEB_TEST_UNSET", true) {
		t.Fatalf("unset should use default")
	}
	if got := Duration("OCRWEB_TEST_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("duration: got %s", got)
	}
	if got := Duration("OCRWEB_TEST_SECS", time.Second); got != 15*time.Second {
		t.Fatalf("seconds: got %s", got)
	}
	if got := Duration("OCRWEB_TEST_BAD_DUR", time.Minute); got != time.Minute {
		t.Fatalf("bad duration should fall back, got %s", got)
	}
	if got := String("OCRWEB_TEST_BLANK", "def"); got != "def" {
		t.Fatalf("blank should use default, got %q", got)
	}
	if got := List("OCRWEB_TEST_LIST", "", "+"); !reflect.DeepEqual(got, []string{"chi_sim", "eng"}) {
		t.Fatalf("list: got %v", got)
	}
}
