package engine

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
)

// TestScriptFixtures runs every script under testdata/scripts and
// snapshots its output with go-snaps. Each script runs twice, with
// the JIT on and off, and both runs must agree before the snapshot is
// taken.
func TestScriptFixtures(t *testing.T) {
	root := filepath.Join("..", "..", "testdata", "scripts")
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("reading fixtures: %v", err)
	}

	var names []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".rbo") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			source, err := os.ReadFile(filepath.Join(root, name))
			if err != nil {
				t.Fatalf("reading %s: %v", name, err)
			}

			run := func(jitEnabled bool) string {
				var out bytes.Buffer
				cfg := DefaultConfig()
				cfg.HotThreshold = 10
				cfg.JITEnabled = jitEnabled
				eng := New(&out, cfg, WithFile(name))
				if _, err := eng.Execute(string(source)); err != nil {
					t.Fatalf("%s (jit=%v): %v", name, jitEnabled, err)
				}
				return out.String()
			}

			withJIT := run(true)
			withoutJIT := run(false)
			if withJIT != withoutJIT {
				t.Fatalf("%s: JIT output diverges from tree-walk:\n--- jit ---\n%s--- interp ---\n%s",
					name, withJIT, withoutJIT)
			}

			snaps.MatchSnapshot(t, withJIT)
		})
	}
}
