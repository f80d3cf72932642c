package particleforge

import (
	"strings"
	"testing"
)

func TestNumberWGSLPrefixesEveryLine(t *testing.T) {
	src := "fn main() {\n    return;\n}"
	numbered := numberWGSL(src)
	if !strings.Contains(numbered, "   1 | fn main() {") {
		t.Fatalf("missing first line number:\n%s", numbered)
	}
	if !strings.Contains(numbered, "   3 | }") {
		t.Fatalf("missing last line number:\n%s", numbered)
	}
}

func TestSetLoggerGenerationShortensUUID(t *testing.T) {
	l := NewDefaultLogger("sim", false)
	setLoggerGeneration(l, "1b4e28ba-2fa1-11d2-883f-0016d3cca427")

	line := l.prefixf("INFO", "rebuilt")
	if !strings.Contains(line, "gen=1b4e28ba") {
		t.Fatalf("expected short generation tag, got %q", line)
	}
	if strings.Contains(line, "2fa1") {
		t.Fatalf("expected UUID truncated at first group, got %q", line)
	}
}

func TestSetLoggerGenerationIgnoresPlainLoggers(t *testing.T) {
	// Must not panic on a logger without generation support.
	setLoggerGeneration(NewNopLogger(), "1b4e28ba-2fa1-11d2-883f-0016d3cca427")
}
