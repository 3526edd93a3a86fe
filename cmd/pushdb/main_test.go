package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI(t *testing.T) {
	for _, engine := range []string{"bolt", "leveldb"} {
		t.Run(engine, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cli.db")
			t.Cleanup(func() { ensure(closeCommandDB(nil, nil)) })
			flags := []string{"--db", path, "--engine", engine, "--compression", "s2"}
			cli := func(args ...string) string {
				t.Helper()
				out, err := run(t, append(args, flags...)...)
				require.NoError(t, err, out)
				return out
			}

			cli("put", "users", "1", `{"name":"foo","tags":["a"]}`)
			cli("put", "users", `"two"`, `{"name":"bar"}`)
			cli("put", "users", "plain", `42`)

			require.Equal(t, `{"name":"foo","tags":["a"]}`+"\n", cli("get", "users", "1"))
			require.Equal(t, "42\n", cli("get", "users", "plain"))

			out := cli("scan", "users", "--start", "", "--end", "", "--limit", "0", "--reverse=false")
			require.Equal(t, []string{
				`1	{"name":"foo","tags":["a"]}`,
				`"plain"	42`,
				`"two"	{"name":"bar"}`,
			}, strings.Split(strings.TrimSpace(out), "\n"))

			out = cli("scan", "users", "--limit", "1", "--reverse=false")
			require.Equal(t, `1	{"name":"foo","tags":["a"]}`+"\n", out)

			out = cli("scan", "users", "--start", "plain", "--end", "two", "--limit", "0", "--reverse=false")
			require.Equal(t, `"plain"	42`+"\n", out)

			out = cli("scan", "users", "--start", "", "--end", "", "--limit", "0", "--reverse")
			require.Equal(t, []string{
				`"two"	{"name":"bar"}`,
				`"plain"	42`,
				`1	{"name":"foo","tags":["a"]}`,
			}, strings.Split(strings.TrimSpace(out), "\n"))

			out = cli("scan", "users", "--start", "1", "--end", "two", "--limit", "1", "--reverse")
			require.Equal(t, `"plain"	42`+"\n", out)

			out = cli("index", "users_by_name", "--reverse")
			require.Empty(t, out)

			out = cli("dump", "--records", "--history=false", "--entries=false", "--raw=false")
			require.Contains(t, out, `users/1 = {"name":"foo","tags":["a"]}`)
			require.NotContains(t, out, "record-meta")

			out = cli("stats", "users", "--index=false")
			require.Contains(t, out, "records: 3\n")
			require.Contains(t, out, "history entries: 3\n")

			out = cli("stats", "users_by_name", "--index")
			require.Contains(t, out, "entries: 0\n")

			out = cli("index", "users_by_name", "foo", "--count")
			require.Equal(t, "0\n", out)

			cli("delete", "users", "1")
			_, err := run(t, append([]string{"get", "users", "1"}, flags...)...)
			require.ErrorContains(t, err, "not found")
		})
	}
}

func TestCLI_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")
	_, err := run(t, "dump", "--db", path, "--engine", "sqlite")
	require.ErrorContains(t, err, "invalid engine sqlite")

	_, err = run(t, "dump", "--db", path, "--engine", "bolt", "--compression", "gzip")
	require.ErrorContains(t, err, "unknown compression")
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}

func TestParseKey(t *testing.T) {
	require.Equal(t, float64(42), parseKey("42"))
	require.Equal(t, "abc", parseKey(`"abc"`))
	require.Equal(t, "abc", parseKey("abc"))
	require.Equal(t, []any{"a", float64(1)}, parseKey(`["a", 1]`))
}

func TestWrapString(t *testing.T) {
	s := wrapString(strings.Repeat("word ", 30))
	for _, line := range strings.Split(s, "\n") {
		require.LessOrEqual(t, len(line), wrap)
	}
}
