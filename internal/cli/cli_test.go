package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func TestRootCommandTree(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()

	want := []string{"generate", "batch", "convert", "catalog", "data", "serve", "cache", "completion"}
	for _, name := range want {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("missing subcommand %q", name)
		}
	}
	for _, flag := range []string{"config", "no-cache", "redis"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing global flag --%s", flag)
		}
	}
}

func TestLoadConfigFileAndRedisFlag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chartforge.toml")
	content := "model = \"gemini-test\"\ndocuments_root = \"out\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c := &CLI{Logger: log.New(io.Discard), configFile: path, redisAddr: "localhost:6390"}
	if err := c.loadConfig(); err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if c.Config.Model != "gemini-test" {
		t.Errorf("Model = %q", c.Config.Model)
	}
	if c.Config.RedisAddr != "localhost:6390" {
		t.Errorf("RedisAddr = %q, the flag should win", c.Config.RedisAddr)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	c := &CLI{Logger: log.New(io.Discard), configFile: filepath.Join(t.TempDir(), "nope.toml")}
	if err := c.loadConfig(); err == nil {
		t.Error("an explicit config file must exist")
	}
}

func TestCompletion(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"completion", "bash"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "chartforge") {
		t.Error("bash completion should mention the binary")
	}
}

func TestDataCommand(t *testing.T) {
	c := testCLI(t)

	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"known family", []string{"Pie", "--rows", "5"}, false},
		{"unknown family", []string{"NoSuchChart"}, true},
		{"too many rows", []string{"Pie", "--rows", "100000"}, true},
		{"preview unsupported", []string{"Pie", "--preview", filepath.Join(t.TempDir(), "p.svg")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := c.dataCommand()
			cmd.SetArgs(tt.args)
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			silence(cmd)
			err := cmd.Execute()
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func silence(cmd *cobra.Command) {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
}
