package handlers

import (
	"context"
	"net/http"
	"runtime"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/crucible"

	"github.com/murphyslaws/murphys-laws/internal/appid"
	"github.com/murphyslaws/murphys-laws/internal/ratelimit"
)

// Build metadata, injected from main via SetVersionInfo.
var (
	AppVersion   = "dev"
	AppCommit    = "unknown"
	AppBuildDate = "unknown"
	appIdentity  *appidentity.Identity
)

// SetVersionInfo records build metadata for /version.
func SetVersionInfo(version, commit, buildDate string) {
	AppVersion = version
	AppCommit = commit
	AppBuildDate = buildDate
}

// SetAppIdentity overrides the identity reported by /version.
func SetAppIdentity(identity *appidentity.Identity) {
	appIdentity = identity
}

// VersionResponse is the /version body.
type VersionResponse struct {
	App          AppInfo         `json:"app"`
	Dependencies DepInfo         `json:"dependencies"`
	Runtime      RuntimeInfo     `json:"runtime"`
	RateLimits   []RateLimitInfo `json:"rate_limits"`
}

type AppInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
	Commit      string `json:"git_commit"`
	BuildDate   string `json:"build_date"`
	GoVersion   string `json:"go_version,omitempty"`
}

type DepInfo struct {
	Gofulmen string `json:"gofulmen"`
	Crucible string `json:"crucible"`
}

type RuntimeInfo struct {
	Platform      string `json:"platform"`
	NumCPU        int    `json:"num_cpu"`
	NumGoroutines int    `json:"num_goroutines"`
}

// RateLimitInfo advertises one category quota so clients can pace requests.
type RateLimitInfo struct {
	Category      string `json:"category"`
	Max           int    `json:"max"`
	WindowSeconds int64  `json:"window_seconds"`
}

func currentIdentity() *appidentity.Identity {
	if appIdentity != nil {
		return appIdentity
	}
	identity, err := appid.Get(context.Background())
	if err != nil || identity == nil {
		return &appidentity.Identity{BinaryName: appid.BinaryName}
	}
	return identity
}

// VersionHandler reports build, dependency and runtime versions together
// with the request quotas.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	version := crucible.GetVersion()
	identity := currentIdentity()

	categories := ratelimit.Categories()
	limits := make([]RateLimitInfo, 0, len(categories))
	for _, c := range categories {
		limits = append(limits, RateLimitInfo{
			Category:      string(c.Category),
			Max:           c.Max,
			WindowSeconds: int64(c.Window.Seconds()),
		})
	}

	SendJSON(w, http.StatusOK, VersionResponse{
		App: AppInfo{
			Name:        identity.BinaryName,
			Description: identity.Description,
			Version:     AppVersion,
			Commit:      AppCommit,
			BuildDate:   AppBuildDate,
			GoVersion:   runtime.Version(),
		},
		Dependencies: DepInfo{
			Gofulmen: version.Gofulmen,
			Crucible: version.Crucible,
		},
		Runtime: RuntimeInfo{
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
			NumCPU:        runtime.NumCPU(),
			NumGoroutines: runtime.NumGoroutine(),
		},
		RateLimits: limits,
	})
}
