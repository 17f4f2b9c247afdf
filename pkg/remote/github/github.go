// Package github implements the remote store on top of the GitHub contents
// API.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/fikasync/pkg/archive"
	"github.com/sidkik/fikasync/pkg/errors"
	"github.com/sidkik/fikasync/pkg/remote"
	"github.com/sidkik/fikasync/pkg/version"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

const (
	// DefaultBaseURL is the root of the GitHub REST API.
	DefaultBaseURL = "https://api.github.com"

	jsonMediaType = "application/vnd.github.v3+json"
	rawMediaType  = "application/vnd.github.v3.raw"
)

// Client talks to a single GitHub repository. It implements remote.Store.
type Client struct {
	// BaseURL is the root of the API. It's only overridden in tests.
	BaseURL string

	owner, repo string
	token       string
	httpClient  *http.Client
}

var _ remote.Store = &Client{}

// New returns a client for `owner/repo` that authenticates with `token`.
func New(token, owner, repo string) *Client {
	return &Client{
		BaseURL:    DefaultBaseURL,
		owner:      owner,
		repo:       repo,
		token:      token,
		httpClient: http.DefaultClient,
	}
}

// ParseRepoURL extracts the owner and repository name from a repository URL
// such as `https://github.com/owner/repo.git`.
func ParseRepoURL(repoURL string) (owner, repo string, err error) {
	clean := strings.TrimSuffix(strings.TrimRight(strings.TrimSpace(repoURL), "/"), ".git")
	parts := strings.Split(clean, "/")
	if len(parts) < 2 || parts[len(parts)-2] == "" || parts[len(parts)-1] == "" {
		return "", "", errors.NewFriendlyError("Could not parse the repository URL %q. "+
			"It should look like https://github.com/owner/repo.", repoURL)
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}

// Login checks that the token is valid, and returns the login of the user it
// belongs to.
func (c *Client) Login(ctx context.Context) (string, error) {
	var user struct {
		Login string `json:"login"`
	}

	resp, err := c.do(ctx, http.MethodGet, "/user", jsonMediaType, nil)
	if err != nil {
		return "", errors.WithContext(err, "get user")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", errors.NewFriendlyError("GitHub rejected the access token. " +
			"Run `fikasync config` to enter a new one.")
	}
	if err := checkStatus(resp); err != nil {
		return "", err
	}

	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", errors.WithContext(err, "decode user")
	}
	if user.Login == "" {
		user.Login = "Unknown"
	}
	return user.Login, nil
}

// Fetch downloads the repository zipball into `dir` and extracts it. It
// returns the root directory of the extracted repository.
func (c *Client) Fetch(ctx context.Context, dir string) (string, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return "", errors.WithContext(err, "create download directory")
	}

	zipPath := filepath.Join(dir, "repo.zip")
	if err := c.downloadArchive(ctx, zipPath); err != nil {
		return "", errors.WithContext(err, "download repository")
	}

	root, err := archive.ExtractZip(fs, zipPath, filepath.Join(dir, "extracted"))
	if err != nil {
		return "", errors.WithContext(err, "extract repository")
	}
	return root, nil
}

func (c *Client) downloadArchive(ctx context.Context, dst string) error {
	resp, err := c.do(ctx, http.MethodGet, c.repoPath("zipball"), jsonMediaType, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	f, err := fs.Create(dst)
	if err != nil {
		return errors.WithContext(err, "create archive")
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return errors.WithContext(err, "write archive")
	}
	return nil
}

// ReadFile returns the raw contents of the file at `path`.
func (c *Client) ReadFile(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, c.contentsPath(path), rawMediaType, nil)
	if err != nil {
		return nil, errors.WithContext(err, "get contents")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, remote.ErrNotFound
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	contents, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WithContext(err, "read body")
	}
	return contents, nil
}

// WriteFile creates or updates the file at `path`. If the file already
// exists, its current blob SHA is looked up first since the API requires it
// for updates.
func (c *Client) WriteFile(ctx context.Context, filePath string, contents []byte) error {
	sha, err := c.blobSHA(ctx, filePath)
	if err != nil {
		// A missing SHA turns the update into a create, which the API rejects
		// for existing files. Proceed anyway so that the error surfaces from
		// the PUT.
		log.WithError(err).WithField("path", filePath).Debug("Failed to look up blob SHA")
	}

	body := struct {
		Message string `json:"message"`
		Content string `json:"content"`
		SHA     string `json:"sha,omitempty"`
	}{
		Message: fmt.Sprintf("Update profile %s", path.Base(filePath)),
		Content: base64.StdEncoding.EncodeToString(contents),
		SHA:     sha,
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	resp, err := c.do(ctx, http.MethodPut, c.contentsPath(filePath), jsonMediaType, bytes.NewReader(bodyBytes))
	if err != nil {
		return errors.WithContext(err, "put contents")
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (c *Client) blobSHA(ctx context.Context, path string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, c.contentsPath(path), jsonMediaType, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var file struct {
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return "", errors.WithContext(err, "decode")
	}
	return file.SHA, nil
}

// Release describes a published release.
type Release struct {
	TagName     string
	HTMLURL     string
	DownloadURL string
}

// LatestRelease returns the latest release of `repoName` (in `owner/repo`
// form). DownloadURL is the first asset of the release, if any.
func (c *Client) LatestRelease(ctx context.Context, repoName string) (Release, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/releases/latest", repoName), jsonMediaType, nil)
	if err != nil {
		return Release{}, errors.WithContext(err, "get release")
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return Release{}, err
	}

	var release struct {
		TagName string `json:"tag_name"`
		HTMLURL string `json:"html_url"`
		Assets  []struct {
			BrowserDownloadURL string `json:"browser_download_url"`
		} `json:"assets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return Release{}, errors.WithContext(err, "decode release")
	}

	ret := Release{TagName: release.TagName, HTMLURL: release.HTMLURL}
	if len(release.Assets) > 0 {
		ret.DownloadURL = release.Assets[0].BrowserDownloadURL
	}
	return ret, nil
}

// Download streams the contents at the absolute `url` into `w`.
func (c *Client) Download(ctx context.Context, url string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.WithContext(err, "new request")
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WithContext(err, "get")
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return errors.WithContext(err, "copy")
	}
	return nil
}

func (c *Client) repoPath(suffix string) string {
	return fmt.Sprintf("/repos/%s/%s/%s", url.PathEscape(c.owner), url.PathEscape(c.repo), suffix)
}

func (c *Client) contentsPath(filePath string) string {
	var segments []string
	for _, segment := range strings.Split(strings.Trim(filePath, "/"), "/") {
		segments = append(segments, url.PathEscape(segment))
	}
	return c.repoPath("contents/" + strings.Join(segments, "/"))
}

func (c *Client) do(ctx context.Context, method, apiPath, accept string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+apiPath, body)
	if err != nil {
		return nil, errors.WithContext(err, "new request")
	}

	// Releases of public repositories can be read anonymously.
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.WithFields(log.Fields{
		"method": method,
		"path":   apiPath,
	}).Debug("GitHub request")
	return c.httpClient.Do(req)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("server responded with %s", resp.Status)
}
