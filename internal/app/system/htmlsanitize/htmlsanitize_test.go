package htmlsanitize_test

import (
	"testing"

	"github.com/eduplatform/campusgate/internal/app/system/htmlsanitize"
)

func TestStrict_Empty(t *testing.T) {
	if got := htmlsanitize.Strict(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestStrict_PlainText(t *testing.T) {
	if got := htmlsanitize.Strict("Ana María"); got != "Ana María" {
		t.Errorf("expected plain text unchanged, got %q", got)
	}
}

func TestStrict_RemovesTags(t *testing.T) {
	got := htmlsanitize.Strict("<b>Ana</b> <script>alert('xss')</script>")
	if got != "Ana" {
		t.Errorf("expected tags and script stripped, got %q", got)
	}
}

func TestStrict_RemovesAnchors(t *testing.T) {
	got := htmlsanitize.Strict(`<a href="javascript:alert(1)">click</a>`)
	if got != "click" {
		t.Errorf("expected anchor stripped, got %q", got)
	}
}
