// Package gitstore implements the remote store as a plain git repository
// reached over SSH or HTTPS.
package gitstore

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	gossh "golang.org/x/crypto/ssh"
	"gopkg.in/src-d/go-billy.v4/util"
	git "gopkg.in/src-d/go-git.v4"
	gitconfig "gopkg.in/src-d/go-git.v4/config"
	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/object"
	"gopkg.in/src-d/go-git.v4/plumbing/transport"
	githttp "gopkg.in/src-d/go-git.v4/plumbing/transport/http"
	gitssh "gopkg.in/src-d/go-git.v4/plumbing/transport/ssh"

	"github.com/sidkik/fikasync/pkg/errors"
	"github.com/sidkik/fikasync/pkg/remote"
)

const remoteName = "origin"

// Options configures a Store.
type Options struct {
	// URL is the clone URL. SSH URLs (`git@host:owner/repo.git` or
	// `ssh://...`) authenticate with SSHKeyPath, HTTPS URLs with Token.
	URL        string
	SSHKeyPath string
	Token      string

	// WorkDir holds the persistent working clone used for single-file reads
	// and writes.
	WorkDir string

	Clock clockwork.Clock
}

// Store is a remote.Store backed by a git repository.
type Store struct {
	url     string
	workDir string
	auth    transport.AuthMethod
	clock   clockwork.Clock
}

var _ remote.Store = &Store{}

// New validates the options and returns a Store.
func New(opts Options) (*Store, error) {
	if opts.URL == "" {
		return nil, errors.MissingFieldError{Field: "REPO_URL"}
	}
	if opts.WorkDir == "" {
		return nil, errors.MissingFieldError{Field: "gitWorkDir"}
	}

	auth, err := authMethod(opts)
	if err != nil {
		return nil, errors.WithContext(err, "configure auth")
	}

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{url: opts.URL, workDir: opts.WorkDir, auth: auth, clock: clock}, nil
}

func isSSHURL(url string) bool {
	return strings.HasPrefix(url, "git@") || strings.HasPrefix(url, "ssh://")
}

func authMethod(opts Options) (transport.AuthMethod, error) {
	if isSSHURL(opts.URL) {
		if opts.SSHKeyPath == "" {
			return nil, errors.MissingFieldError{Field: "SSH_KEY_PATH"}
		}

		keys, err := gitssh.NewPublicKeysFromFile("git", opts.SSHKeyPath, "")
		if err != nil {
			return nil, errors.NewFriendlyError("Failed to load the SSH key at %q:\n%s",
				opts.SSHKeyPath, err)
		}
		// Host keys aren't checked, like `StrictHostKeyChecking=no`.
		keys.HostKeyCallback = gossh.InsecureIgnoreHostKey()
		return keys, nil
	}

	if opts.Token != "" {
		return &githttp.BasicAuth{Username: "fikasync", Password: opts.Token}, nil
	}
	return nil, nil
}

// Fetch shallow-clones the repository into `dir`.
func (s *Store) Fetch(ctx context.Context, dir string) (string, error) {
	cloneDir := filepath.Join(dir, "clone")
	_, err := git.PlainCloneContext(ctx, cloneDir, false, &git.CloneOptions{
		URL:        s.url,
		Auth:       s.auth,
		RemoteName: remoteName,
		Depth:      1,
	})
	switch {
	case err == transport.ErrEmptyRemoteRepository:
		// A repository without commits holds no profiles.
		if err := os.MkdirAll(cloneDir, 0755); err != nil {
			return "", errors.WithContext(err, "create clone dir")
		}
		return cloneDir, nil
	case err != nil:
		return "", errors.WithContext(err, "clone")
	}
	return cloneDir, nil
}

// ReadFile returns the contents of `filePath` at the tip of the remote
// branch.
func (s *Store) ReadFile(ctx context.Context, filePath string) ([]byte, error) {
	repo, err := s.refresh(ctx)
	if err != nil {
		return nil, errors.WithContext(err, "refresh working clone")
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, errors.WithContext(err, "get worktree")
	}

	f, err := wt.Filesystem.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, remote.ErrNotFound
		}
		return nil, errors.WithContext(err, "open")
	}
	defer f.Close()

	contents, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, errors.WithContext(err, "read")
	}
	return contents, nil
}

// WriteFile commits `contents` at `filePath` and pushes the commit.
func (s *Store) WriteFile(ctx context.Context, filePath string, contents []byte) error {
	repo, err := s.refresh(ctx)
	if err != nil {
		return errors.WithContext(err, "refresh working clone")
	}

	wt, err := repo.Worktree()
	if err != nil {
		return errors.WithContext(err, "get worktree")
	}

	if err := util.WriteFile(wt.Filesystem, filePath, contents, 0644); err != nil {
		return errors.WithContext(err, "write")
	}

	if _, err := wt.Add(filePath); err != nil {
		return errors.WithContext(err, "add")
	}

	status, err := wt.Status()
	if err != nil {
		return errors.WithContext(err, "status")
	}
	if status.IsClean() {
		log.WithField("path", filePath).Debug("Remote already has these contents")
		return nil
	}

	_, err = wt.Commit(fmt.Sprintf("Update profile %s", path.Base(filePath)), &git.CommitOptions{
		Author: &object.Signature{
			Name:  "fikasync",
			Email: "fikasync@localhost",
			When:  s.clock.Now(),
		},
	})
	if err != nil {
		return errors.WithContext(err, "commit")
	}

	err = repo.PushContext(ctx, &git.PushOptions{RemoteName: remoteName, Auth: s.auth})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return errors.WithContext(err, "push")
	}
	return nil
}

// refresh opens the working clone, creating it if necessary, and resets it
// to the tip of the remote branch so that reads observe the latest remote
// state.
func (s *Store) refresh(ctx context.Context) (*git.Repository, error) {
	repo, err := git.PlainOpen(s.workDir)
	if err == git.ErrRepositoryNotExists {
		return s.clone(ctx)
	}
	if err != nil {
		return nil, errors.WithContext(err, "open")
	}

	err = repo.FetchContext(ctx, &git.FetchOptions{RemoteName: remoteName, Auth: s.auth, Force: true})
	switch {
	case err == git.NoErrAlreadyUpToDate, err == transport.ErrEmptyRemoteRepository:
	case err != nil:
		return nil, errors.WithContext(err, "fetch")
	}

	head, err := repo.Head()
	if err == plumbing.ErrReferenceNotFound {
		// Nothing has been committed yet.
		return repo, nil
	}
	if err != nil {
		return nil, errors.WithContext(err, "get head")
	}

	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName(remoteName, head.Name().Short()), true)
	if err == plumbing.ErrReferenceNotFound {
		return repo, nil
	}
	if err != nil {
		return nil, errors.WithContext(err, "get remote branch")
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, errors.WithContext(err, "get worktree")
	}

	err = wt.Reset(&git.ResetOptions{Commit: remoteRef.Hash(), Mode: git.HardReset})
	if err != nil {
		return nil, errors.WithContext(err, "reset")
	}
	return repo, nil
}

func (s *Store) clone(ctx context.Context) (*git.Repository, error) {
	repo, err := git.PlainCloneContext(ctx, s.workDir, false, &git.CloneOptions{
		URL:        s.url,
		Auth:       s.auth,
		RemoteName: remoteName,
	})
	if err != transport.ErrEmptyRemoteRepository {
		if err != nil {
			return nil, errors.WithContext(err, "clone")
		}
		return repo, nil
	}

	// Empty remotes can't be cloned, so start a repository that pushes to it.
	if err := os.RemoveAll(s.workDir); err != nil {
		return nil, errors.WithContext(err, "remove partial clone")
	}
	repo, err = git.PlainInit(s.workDir, false)
	if err != nil {
		return nil, errors.WithContext(err, "init")
	}

	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{Name: remoteName, URLs: []string{s.url}})
	if err != nil {
		return nil, errors.WithContext(err, "create remote")
	}
	return repo, nil
}
