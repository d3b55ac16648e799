package mkparse

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDryRunSimple(t *testing.T) {
	out := "gcc -I include -DHAVE_X=1 -O2 -c src/main.c -o build/main.o\n" +
		"echo done\n"
	m := ParseDryRun("/repo", out)
	require.Len(t, m, 1)

	src := filepath.Join("/repo", "src", "main.c")
	flags, ok := m[src]
	require.True(t, ok)
	assert.Equal(t, []string{"-x", "c", "-I", "include", "-DHAVE_X=1"}, flags)
}

func TestParseDryRunChainedCd(t *testing.T) {
	out := "cd sub && cc -c util.c -o util.o\n"
	m := ParseDryRun("/repo", out)
	require.Len(t, m, 1)
	_, ok := m[filepath.Join("/repo", "sub", "util.c")]
	assert.True(t, ok)
}

func TestParseDryRunSkipsNonCompiles(t *testing.T) {
	out := "ar rcs libfoo.a foo.o\n" +
		"gcc -o prog main.o util.o\n" + // link, no -c
		"rm -f *.o\n"
	m := ParseDryRun("/repo", out)
	assert.Empty(t, m)
}

func TestParseDryRunCppLanguageDefault(t *testing.T) {
	out := "g++ -c src/widget.cpp -o widget.o\n"
	m := ParseDryRun("/repo", out)
	require.Len(t, m, 1)
	flags := m[filepath.Join("/repo", "src", "widget.cpp")]
	assert.Equal(t, []string{"-x", "c++"}, flags)
}

func TestParseDryRunKeepsExplicitLanguage(t *testing.T) {
	out := "clang -x c -c weird.cc -o weird.o\n"
	m := ParseDryRun("/repo", out)
	require.Len(t, m, 1)
	flags := m[filepath.Join("/repo", "weird.cc")]
	assert.Equal(t, []string{"-x", "c"}, flags)
}

func TestSplitChainedRespectsQuotes(t *testing.T) {
	parts := splitChained(`echo "a && b" && cc -c x.c`)
	require.Len(t, parts, 2)
	assert.Equal(t, `echo "a && b"`, parts[0])
	assert.Equal(t, "cc -c x.c", parts[1])
}

func TestSplitQuoted(t *testing.T) {
	argv := splitQuoted(`cc -DMSG='hello world' -c x.c`)
	assert.Equal(t, []string{"cc", "-DMSG=hello world", "-c", "x.c"}, argv)
}

func TestSourceOfIgnoresOutputArg(t *testing.T) {
	// -o argument that happens to end in .c must not be chosen.
	argv := []string{"gcc", "-c", "real.c", "-o", "trap.c"}
	assert.Equal(t, "/cwd/real.c", sourceOf(argv, "/cwd"))
}
