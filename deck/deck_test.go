package deck

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
	"testing"
)

func TestGenerateDeterministic(t *testing.T) {
	var buf1, buf2 bytes.Buffer

	sum1, err := NewGenerator(DefaultConfig()).Generate(&buf1)
	if err != nil {
		t.Fatalf("first generation failed: %v", err)
	}

	sum2, err := NewGenerator(DefaultConfig()).Generate(&buf2)
	if err != nil {
		t.Fatalf("second generation failed: %v", err)
	}

	if buf1.String() != buf2.String() {
		t.Error("decks differ for the same config")
	}

	if sum1 != sum2 {
		t.Errorf("summaries differ: %+v vs %+v", sum1, sum2)
	}
}

func TestGenerateFormat(t *testing.T) {
	var buf bytes.Buffer

	sum, err := NewGenerator(DefaultConfig()).Generate(&buf)
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	header := regexp.MustCompile(`^<[a-z_/]+>$`)
	param := regexp.MustCompile(`^[a-z0-9_]+ = \S+( \S+)*$`)

	var blocks, params int

	scanner := bufio.NewScanner(&buf)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := scanner.Text()

		switch {
		case line == "":
		case header.MatchString(line):
			blocks++
		case param.MatchString(line):
			params++
		default:
			t.Errorf("line %d: unexpected %q", lineNum, line)
		}
	}

	if err := scanner.Err(); err != nil {
		t.Fatalf("scanner error: %v", err)
	}

	if blocks != sum.Blocks {
		t.Errorf("blocks = %d, summary says %d", blocks, sum.Blocks)
	}
	if params != sum.Params {
		t.Errorf("params = %d, summary says %d", params, sum.Params)
	}
}

func TestGenerateContents(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Iterations = 7
	cfg.MeshSize = 128

	var buf bytes.Buffer
	if _, err := NewGenerator(cfg).Generate(&buf); err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	out := buf.String()

	for _, want := range []string{
		"<job>\nproblem_id = linear_wave\n",
		"nx1 = 128\n",
		"ix3_bc = periodic\n",
		"nlim = 7\n",
		"<problem/linear_wave>\n",
		"riemann = hlle\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("deck missing %q", want)
		}
	}
}

func TestGenerateInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no problem", func(c *Config) { c.ProblemID = "" }},
		{"zero mesh", func(c *Config) { c.MeshSize = 0 }},
		{"indivisible", func(c *Config) { c.BlockSize = 24 }},
		{"no iterations", func(c *Config) { c.Iterations = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			var buf bytes.Buffer
			if _, err := NewGenerator(cfg).Generate(&buf); err == nil {
				t.Error("expected error")
			}

			if buf.Len() != 0 {
				t.Errorf("wrote %d bytes for invalid config", buf.Len())
			}
		})
	}
}

func TestBlocksDriverRequiredKeys(t *testing.T) {
	values := map[string]string{}
	for _, b := range NewGenerator(DefaultConfig()).Blocks() {
		for _, p := range b.Params {
			values[b.Name+"/"+p.Key] = p.Value
		}
	}

	for key, want := range map[string]string{
		"job/problem_id": "linear_wave",
		"hydro/eos":      "adiabatic",
		"hydro/fluid":    "euler",
	} {
		got, ok := values[key]
		if !ok {
			t.Errorf("deck has no %s", key)
			continue
		}
		if got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}

	if _, ok := values["parthenon/job/problem_id"]; ok {
		t.Error("problem_id belongs in <job>, not <parthenon/job>")
	}
}
