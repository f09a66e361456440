package git

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeGit records invocations and replies from a script keyed by the
// git subcommand.
type fakeGit struct {
	calls   [][]string
	replies map[string]func(args []string) ([]byte, error)
}

func (f *fakeGit) run(_ context.Context, _ string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, args)
	if fn, ok := f.replies[args[0]]; ok {
		return fn(args)
	}
	return nil, nil
}

func withFakeGit(t *testing.T, replies map[string]func([]string) ([]byte, error)) *fakeGit {
	t.Helper()
	fg := &fakeGit{replies: replies}
	orig := runGit
	runGit = fg.run
	t.Cleanup(func() { runGit = orig })
	return fg
}

func TestDefaultBranchFromRemoteHead(t *testing.T) {
	withFakeGit(t, map[string]func([]string) ([]byte, error){
		"symbolic-ref": func([]string) ([]byte, error) {
			return []byte("refs/remotes/origin/trunk\n"), nil
		},
	})
	require.Equal(t, "trunk", DefaultBranch(context.Background(), "/repo"))
}

func TestDefaultBranchFallsBackToLocal(t *testing.T) {
	withFakeGit(t, map[string]func([]string) ([]byte, error){
		"symbolic-ref": func([]string) ([]byte, error) {
			return nil, errors.New("no origin/HEAD")
		},
		"show-ref": func(args []string) ([]byte, error) {
			if args[len(args)-1] == "refs/heads/master" {
				return nil, nil
			}
			return nil, errors.New("not found")
		},
	})
	require.Equal(t, "master", DefaultBranch(context.Background(), "/repo"))
}

func TestDefaultBranchLastResort(t *testing.T) {
	withFakeGit(t, map[string]func([]string) ([]byte, error){
		"symbolic-ref": func([]string) ([]byte, error) { return nil, errors.New("nope") },
		"show-ref":     func([]string) ([]byte, error) { return nil, errors.New("nope") },
	})
	require.Equal(t, "main", DefaultBranch(context.Background(), "/repo"))
}

func TestAddWorktreeArgs(t *testing.T) {
	fg := withFakeGit(t, nil)

	err := AddWorktree(context.Background(), "/repo", "/worktrees/fix", "alice/fix", "origin/main")
	require.NoError(t, err)
	require.Equal(t,
		[]string{"worktree", "add", "/worktrees/fix", "-b", "alice/fix", "origin/main"},
		fg.calls[0])
}

func TestAddWorktreeRejectsBadBranch(t *testing.T) {
	fg := withFakeGit(t, nil)

	err := AddWorktree(context.Background(), "/repo", "/wt", "bad..name", "origin/main")
	require.Error(t, err)
	require.Empty(t, fg.calls, "git must not run for an invalid branch")
}

func TestAddWorktreeSurfacesGitError(t *testing.T) {
	withFakeGit(t, map[string]func([]string) ([]byte, error){
		"worktree": func([]string) ([]byte, error) {
			return []byte("fatal: 'origin/main' is not a commit"), errors.New("exit status 128")
		},
	})
	err := AddWorktree(context.Background(), "/repo", "/wt", "fix", "origin/main")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a commit")
}

func TestUserBranchPrefix(t *testing.T) {
	withFakeGit(t, map[string]func([]string) ([]byte, error){
		"config": func([]string) ([]byte, error) {
			return []byte("Jane Doe\n"), nil
		},
	})
	require.Equal(t, "jane-doe/", UserBranchPrefix(context.Background(), "/repo"))
}

func TestUserBranchPrefixUnset(t *testing.T) {
	withFakeGit(t, map[string]func([]string) ([]byte, error){
		"config": func([]string) ([]byte, error) { return nil, errors.New("exit status 1") },
	})
	require.Empty(t, UserBranchPrefix(context.Background(), "/repo"))
}

func TestValidateBranchName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"fix-auth", true},
		{"alice/fix-auth", true},
		{"v1.2.3", true},
		{"", false},
		{" padded", false},
		{"double..dot", false},
		{".hidden", false},
		{"done.lock", false},
		{"has space", false},
		{"tilde~1", false},
		{"ref@{0}", false},
		{"@", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBranchName(tt.name)
			if tt.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestSanitizeBranchName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"fix auth", "fix-auth"},
		{"weird~^:name", "weird-name"},
		{".leading", "leading"},
		{"trailing.lock", "trailing"},
		{"many   spaces", "many-spaces"},
		{"--edges--", "edges"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, SanitizeBranchName(tt.in), "input %q", tt.in)
	}
}
