package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placeholderCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addPlaceholderFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestPlaceholderInput(t *testing.T) {
	dir := t.TempDir()
	values := filepath.Join(dir, "values.yaml")
	require.NoError(t, os.WriteFile(values, []byte("customer:\n  name: Grace\n  tier: gold\nappName: Merge\n"), 0o644))

	cmd := placeholderCmd(t, "--values", values, "--set", "customer.name=Ada", "--set", "order.id=42")
	got, err := placeholderInput(cmd)
	require.NoError(t, err)

	want := map[string]any{
		"customer": map[string]any{"name": "Ada", "tier": "gold"},
		"appName":  "Merge",
		"order":    map[string]any{"id": "42"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("placeholders mismatch (-want +got):\n%s", diff)
	}
}

func TestPlaceholderInput_Errors(t *testing.T) {
	_, err := placeholderInput(placeholderCmd(t, "--set", "novalue"))
	assert.Error(t, err)

	_, err = placeholderInput(placeholderCmd(t, "--set", "a=1", "--set", "a.b=2"))
	assert.ErrorContains(t, err, "a is not an object")

	_, err = placeholderInput(placeholderCmd(t, "--values", filepath.Join(t.TempDir(), "missing.json")))
	assert.Error(t, err)
}

func TestArtifactPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "letters_welcome-3.pdf"), artifactPath("out", "letters/welcome", "-3", "pdf"))
}

const greeting = `<meta name="email-to" content="{{ to }}">

<h1>Hi {{ name }}</h1>
`

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRenderAndMerge(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeting.html"), []byte(greeting), 0o644))
	common := []string{"--template-dir", dir, "--cache", "none", "--email-from", "noreply@example.com"}

	stdout, _, err := runCLI(t, append([]string{"render", "greeting",
		"--engine", "email", "--format", "html", "--stdout",
		"--set", "to=ada@example.com", "--set", "name=Ada & Co"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "<h1>Hi Ada &amp; Co</h1>")

	data := filepath.Join(dir, "rows.csv")
	require.NoError(t, os.WriteFile(data, []byte("to,name\nada@example.com,Ada\nnot-an-address,Bob\n"), 0o644))
	out := filepath.Join(dir, "out")
	_, stderr, err := runCLI(t, append([]string{"merge", "greeting", "--engine", "email", "--data", data, "--out", out}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, stderr, "partial: 1 rendered, 1 failed")

	eml, err := os.ReadFile(filepath.Join(out, "greeting-0.eml"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(eml), "To: <ada@example.com>"))
	_, err = os.Stat(filepath.Join(out, "greeting-1.eml"))
	assert.True(t, os.IsNotExist(err), "expected failed row to write nothing")
}
