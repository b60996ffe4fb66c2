package scriptsource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveLocalPathPassesThroughUnchanged(t *testing.T) {
	t.Parallel()

	r := NewResolver(t.TempDir(), nil)

	dir, err := r.Resolve(context.Background(), "/opt/scripts")

	require.NoError(t, err)
	require.Equal(t, "/opt/scripts", dir)
}

func TestLooksLikeGitRemote(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"/opt/scripts":                          false,
		"./scripts":                             false,
		"https://github.com/acme/scripts.git":   true,
		"http://internal.example.com/scripts":   true,
		"git@github.com:acme/scripts.git":       true,
		"ssh://git@example.com/acme/scripts.git": true,
		"scripts.git":                           true,
	}

	for raw, want := range cases {
		require.Equal(t, want, looksLikeGitRemote(raw), raw)
	}
}

func TestCloneDirNameIsDeterministic(t *testing.T) {
	t.Parallel()

	a := cloneDirName("https://github.com/acme/scripts.git")
	b := cloneDirName("https://github.com/acme/scripts.git")

	require.Equal(t, a, b)
	require.NotEqual(t, a, cloneDirName("https://github.com/acme/other.git"))
}
