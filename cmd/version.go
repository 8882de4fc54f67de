package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/sellerscope/internal/config"
	"github.com/derickschaefer/sellerscope/internal/render"
)

// Version is the release string. Production builds overwrite it via:
//
//	go build -ldflags "-X github.com/derickschaefer/sellerscope/cmd.Version=v0.2.0"
var Version = "v0.1.0"

// BuildTime is optionally injected at build time alongside Version:
//
//	-ldflags "-X github.com/derickschaefer/sellerscope/cmd.BuildTime=2026-02-16T12:00:00Z"
var BuildTime = ""

type versionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	GOOS      string `json:"goos"`
	GOARCH    string `json:"goarch"`
	BuildTime string `json:"build_time,omitempty"`
	Commit    string `json:"commit,omitempty"`
	KeepaAPI  string `json:"keepa_api"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the sellerscope version and build information",
	Long: `Print the sellerscope version string and build metadata.

Default output is plain text, suitable for shell scripts and pipelines.
Use --format json for structured output.`,
	Example: `  sellerscope version
  sellerscope version --format json | jq .version`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentVersion()
		out := cmd.OutOrStdout()

		switch globalFlags.Format {
		case render.FormatJSON:
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(info)

		case render.FormatJSONL:
			b, err := json.Marshal(info)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\n", b)
			return nil

		default:
			fmt.Fprintf(out, "sellerscope %s\n", info.Version)
			fmt.Fprintf(out, "go          %s\n", info.GoVersion)
			fmt.Fprintf(out, "os          %s/%s\n", info.GOOS, info.GOARCH)
			if info.BuildTime != "" {
				fmt.Fprintf(out, "built       %s\n", info.BuildTime)
			}
			if info.Commit != "" {
				fmt.Fprintf(out, "commit      %s\n", info.Commit)
			}
			fmt.Fprintf(out, "keepa api   %s\n", info.KeepaAPI)
			return nil
		}
	},
}

func currentVersion() versionInfo {
	info := versionInfo{
		Version:   Version,
		GoVersion: runtime.Version(),
		GOOS:      runtime.GOOS,
		GOARCH:    runtime.GOARCH,
		BuildTime: BuildTime,
		KeepaAPI:  config.DefaultBaseURL,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 12 {
				info.Commit = s.Value[:12]
			}
		}
	}
	return info
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
