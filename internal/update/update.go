// Package update provides version checking and self-update functionality.
package update

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/swarmhq/swarm/internal/logging"
)

const (
	// GitHubRepo is the repository to check for updates
	GitHubRepo = "swarmhq/swarm"

	// CheckInterval gates startup checks: at most one per day.
	CheckInterval = 24 * time.Hour

	// lastCheckMarker records (via mtime) when the last check ran.
	lastCheckMarker = ".last-update-check"

	// justUpdatedMarker tells the NEXT startup that an update landed.
	justUpdatedMarker = ".just-updated"
)

var updateLog = logging.ForComponent(logging.CompUpdate)

// Release represents a GitHub release
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	PublishedAt time.Time `json:"published_at"`
	HTMLURL     string    `json:"html_url"`
	Assets      []Asset   `json:"assets"`
}

// Asset represents a release asset (binary download)
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// Info describes the outcome of a version check.
type Info struct {
	Available      bool
	CurrentVersion string
	LatestVersion  string
	DownloadURL    string
	ReleaseURL     string
}

// Result is the single completion event a background check posts.
type Result struct {
	Info    *Info
	Updated bool
	Err     error
}

// ShouldCheck reports whether enough time has passed since the last
// check. A missing marker means never checked.
func ShouldCheck(swarmDir string) bool {
	info, err := os.Stat(filepath.Join(swarmDir, lastCheckMarker))
	if err != nil {
		return true
	}
	return time.Since(info.ModTime()) >= CheckInterval
}

// MarkChecked refreshes the last-check marker.
func MarkChecked(swarmDir string) {
	path := filepath.Join(swarmDir, lastCheckMarker)
	if err := os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)+"\n"), 0o644); err != nil {
		updateLog.Warn("check_marker_write_failed", slog.Any("error", err))
	}
}

// ConsumeJustUpdated reports whether the previous run installed an
// update, clearing the marker so the banner shows once.
func ConsumeJustUpdated(swarmDir string) bool {
	path := filepath.Join(swarmDir, justUpdatedMarker)
	if _, err := os.Stat(path); err != nil {
		return false
	}
	os.Remove(path)
	return true
}

func markJustUpdated(swarmDir string) {
	path := filepath.Join(swarmDir, justUpdatedMarker)
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		updateLog.Warn("updated_marker_write_failed", slog.Any("error", err))
	}
}

// MaybeCheckAsync starts the gated background update task. Returns nil
// when the daily gate has not elapsed. Otherwise the check (and, with
// autoUpdate, the install) runs in a goroutine that posts exactly one
// Result on the returned channel and never blocks the caller: the
// channel is buffered, the main loop drains it at its own pace.
func MaybeCheckAsync(swarmDir, currentVersion string, autoUpdate bool) <-chan Result {
	if !ShouldCheck(swarmDir) {
		return nil
	}
	MarkChecked(swarmDir)

	ch := make(chan Result, 1)
	go func() {
		defer close(ch)

		info, err := CheckForUpdate(currentVersion)
		if err != nil {
			updateLog.Warn("update_check_failed", slog.Any("error", err))
			ch <- Result{Err: err}
			return
		}
		res := Result{Info: info}
		if info.Available && autoUpdate {
			if err := PerformUpdate(info.DownloadURL); err != nil {
				updateLog.Warn("auto_update_failed", slog.Any("error", err))
				res.Err = err
			} else {
				markJustUpdated(swarmDir)
				res.Updated = true
			}
		}
		ch <- res
	}()
	return ch
}

// fetchLatestRelease fetches the latest release from GitHub
func fetchLatestRelease() (*Release, error) {
	url := fmt.Sprintf("https://api.github.com/repos/%s/releases/latest", GitHubRepo)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to parse release: %w", err)
	}

	return &release, nil
}

// getAssetURL returns the download URL for the current platform
func getAssetURL(release *Release) string {
	// Expected asset name: swarm_X.Y.Z_os_arch.tar.gz
	version := strings.TrimPrefix(release.TagName, "v")
	expectedName := fmt.Sprintf("swarm_%s_%s_%s.tar.gz", version, runtime.GOOS, runtime.GOARCH)

	for _, asset := range release.Assets {
		if asset.Name == expectedName {
			return asset.BrowserDownloadURL
		}
	}
	return ""
}

// CompareVersions compares two semantic versions
// Returns: -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2
func CompareVersions(v1, v2 string) int {
	v1 = strings.TrimPrefix(v1, "v")
	v2 = strings.TrimPrefix(v2, "v")

	parts1 := strings.Split(v1, ".")
	parts2 := strings.Split(v2, ".")

	// Pad with zeros
	for len(parts1) < 3 {
		parts1 = append(parts1, "0")
	}
	for len(parts2) < 3 {
		parts2 = append(parts2, "0")
	}

	for i := 0; i < 3; i++ {
		var n1, n2 int
		_, _ = fmt.Sscanf(parts1[i], "%d", &n1)
		_, _ = fmt.Sscanf(parts2[i], "%d", &n2)

		if n1 < n2 {
			return -1
		}
		if n1 > n2 {
			return 1
		}
	}

	return 0
}

// CheckForUpdate asks GitHub whether a newer release exists.
func CheckForUpdate(currentVersion string) (*Info, error) {
	info := &Info{CurrentVersion: currentVersion}

	release, err := fetchLatestRelease()
	if err != nil {
		return info, err
	}

	info.LatestVersion = strings.TrimPrefix(release.TagName, "v")
	info.DownloadURL = getAssetURL(release)
	info.ReleaseURL = release.HTMLURL
	info.Available = CompareVersions(currentVersion, info.LatestVersion) < 0
	return info, nil
}

// PerformUpdate downloads and installs the latest version in place of
// the running binary, keeping a .old backup until the swap succeeds.
func PerformUpdate(downloadURL string) error {
	if downloadURL == "" {
		return fmt.Errorf("no download URL available for %s/%s", runtime.GOOS, runtime.GOARCH)
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return fmt.Errorf("failed to resolve symlinks: %w", err)
	}

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Get(downloadURL)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp("", "swarm-update-*.tar.gz")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	_, err = io.Copy(tmpFile, resp.Body)
	tmpFile.Close()
	if err != nil {
		return fmt.Errorf("failed to save download: %w", err)
	}

	binaryData, err := extractBinaryFromTarGz(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to extract: %w", err)
	}

	// Write new binary next to the old one, back up the old, swap.
	newBinaryPath := execPath + ".new"
	if err := os.WriteFile(newBinaryPath, binaryData, 0o755); err != nil {
		return fmt.Errorf("failed to write new binary: %w", err)
	}

	oldBinaryPath := execPath + ".old"
	if err := os.Rename(execPath, oldBinaryPath); err != nil {
		os.Remove(newBinaryPath)
		return fmt.Errorf("failed to backup old binary: %w", err)
	}

	if err := os.Rename(newBinaryPath, execPath); err != nil {
		// Restore the old binary so the install never half-applies
		_ = os.Rename(oldBinaryPath, execPath)
		return fmt.Errorf("failed to install new binary: %w", err)
	}

	os.Remove(oldBinaryPath)
	updateLog.Info("binary_updated", slog.String("path", execPath))
	return nil
}

// extractBinaryFromTarGz extracts the swarm binary from a .tar.gz file
func extractBinaryFromTarGz(tarPath string) ([]byte, error) {
	file, err := os.Open(tarPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header.Typeflag == tar.TypeReg && header.Name == "swarm" {
			return io.ReadAll(tr)
		}
	}
	return nil, fmt.Errorf("swarm binary not found in archive")
}
