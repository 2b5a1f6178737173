package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/whis/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/whis/internal/connectors/filesystem"
	"github.com/custodia-labs/whis/internal/core/domain"
	"github.com/custodia-labs/whis/internal/core/services"
)

// harness runs commands against in-memory settings and registry.
type harness struct {
	t        *testing.T
	settings *services.SettingsService
	store    *memory.GenerationStore
	out      *bytes.Buffer
	errOut   *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("WHIS_PSEUDONYM_SALT", "cli-test-salt")

	h := &harness{
		t:        t,
		settings: services.NewSettingsService(memory.NewConfigStore(), nil),
		store:    memory.NewGenerationStore(),
		out:      new(bytes.Buffer),
		errOut:   new(bytes.Buffer),
	}

	origApp, origSettings := appFactory, settingsFactory
	settingsFactory = func(string) (*services.SettingsService, error) {
		return h.settings, nil
	}
	appFactory = func(ctx context.Context, _ Options) (*App, error) {
		settings, err := h.settings.Get()
		if err != nil {
			return nil, err
		}
		if err := settings.Validate(); err != nil {
			return nil, err
		}
		return assemble(ctx, h.settings, settings, h.store)
	}
	t.Cleanup(func() {
		appFactory, settingsFactory = origApp, origSettings
		resetFlags()
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	return h
}

// run executes the root command with fresh output buffers.
func (h *harness) run(args ...string) error {
	h.t.Helper()
	return h.runWithInput("", args...)
}

func (h *harness) runWithInput(input string, args ...string) error {
	h.t.Helper()
	resetFlags()
	h.out.Reset()
	h.errOut.Reset()
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetOut(h.out)
	rootCmd.SetErr(h.errOut)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

// resetFlags restores command flag variables between runs.
func resetFlags() {
	verboseFlag, configDir, dataDir = false, "", ""
	ingestOut, ingestAudit, indexAudit = "", "", ""
	buildJSON, generationsJSON = false, false
	queryMode, queryK, queryJSON = string(domain.ModeTeacher), 0, false
	exportGeneration, pruneKeep = 0, defaultPruneKeep
	watchDebounce = filesystem.DefaultDebounce
	mcpPort, mcpWatchDir = 0, ""
	versionJSON = false
}

// writeCorpus creates a small corpus of runbooks from distinct sources.
func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"kerberoasting.md": `+++
title = "Kerberoasting"
tags = ["attack:T1558.003"]
+++
# Kerberoasting

Service tickets requested for accounts with SPNs can be cracked offline.
Contact alice@example.com before resetting service account passwords.
`,
		"hunting/spn-queries.md": `+++
title = "Hunting SPN ticket requests"
tags = ["tool:splunk", "attack:T1558.003"]
+++
Search for event 4769 with RC4 encryption across domain controllers.
`,
		"notes.txt": "Rotate the krbtgt account twice after a golden ticket incident.\n",
	}
	for name, body := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	}
	return dir
}
