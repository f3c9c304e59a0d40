package backend

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/phovu7426/truyentranh/internal/model"
)

// VersionInfo is the backend's build report from GET /api/version.
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
}

// Version fetches the backend's reported build version.
func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	var info VersionInfo
	if err := c.GetJSON(ctx, PathVersion, nil, &info); err != nil {
		return nil, err
	}
	if info.Version == "" {
		return nil, model.NewUpstreamError("backend", fmt.Errorf("version endpoint returned no version"))
	}
	return &info, nil
}

// CheckVersion verifies the backend is at least the given minimum
// version. The gateway depends on envelope and discount endpoint
// behavior introduced over time, so startup refuses older backends
// rather than failing obscurely at request time.
func (c *Client) CheckVersion(ctx context.Context, minVersion string) (*VersionInfo, error) {
	info, err := c.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching backend version: %w", err)
	}

	got := normalizeVersion(info.Version)
	want := normalizeVersion(minVersion)
	if !semver.IsValid(got) {
		return nil, fmt.Errorf("backend reported invalid version %q", info.Version)
	}
	if !semver.IsValid(want) {
		return nil, fmt.Errorf("invalid minimum version %q", minVersion)
	}
	if semver.Compare(got, want) < 0 {
		return nil, fmt.Errorf("backend version %s is below required minimum %s", info.Version, minVersion)
	}
	return info, nil
}

// normalizeVersion adds the "v" prefix semver parsing requires.
func normalizeVersion(v string) string {
	if v == "" {
		return v
	}
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}
